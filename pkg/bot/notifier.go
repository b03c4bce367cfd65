package bot

import (
	"fmt"
	"log"
)

// DiscordNotifier delivers event announcements over Discord: a DM
// first, then the configured announcement channel when DMs are closed.
type DiscordNotifier struct {
	session           Session
	fallbackChannelID string
}

func NewDiscordNotifier(session Session, fallbackChannelID string) *DiscordNotifier {
	return &DiscordNotifier{session: session, fallbackChannelID: fallbackChannelID}
}

func (n *DiscordNotifier) SendDirect(userID, content string) error {
	channel, err := n.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("create DM channel for %s: %w", userID, err)
	}
	if _, err := n.session.ChannelMessageSend(channel.ID, content); err != nil {
		return fmt.Errorf("send DM to %s: %w", userID, err)
	}
	log.Printf("[Events] Sent DM to %s", userID)
	return nil
}

func (n *DiscordNotifier) SendToFallback(userID, content string) error {
	if n.fallbackChannelID == "" {
		return fmt.Errorf("no fallback channel configured")
	}
	if _, err := n.session.ChannelMessageSend(n.fallbackChannelID, content); err != nil {
		return fmt.Errorf("send fallback for %s: %w", userID, err)
	}
	log.Printf("[Events] Sent fallback announcement for %s", userID)
	return nil
}
