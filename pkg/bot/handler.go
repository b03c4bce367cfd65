package bot

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"academia/pkg/events"
	"academia/pkg/narrative"
	"academia/pkg/players"

	"github.com/bwmarrin/discordgo"
)

// Handler routes Discord interactions into the narrative manager and
// the event scheduler.
type Handler struct {
	narrative *narrative.Manager
	events    *events.Scheduler
}

func NewHandler(manager *narrative.Manager, scheduler *events.Scheduler) *Handler {
	return &Handler{
		narrative: manager,
		events:    scheduler,
	}
}

// interactionUser resolves who triggered an interaction. Guild
// interactions carry a Member, DMs carry a User directly; either way
// the display name prefers the global name over the login username.
func interactionUser(i *discordgo.InteractionCreate) (userID, name string, err error) {
	user := i.User
	if i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return "", "", errors.New("interaction carries no user")
	}
	name = user.Username
	if user.GlobalName != "" {
		name = user.GlobalName
	}
	return user.ID, name, nil
}

// friendlyError maps an engine error to the message shown to the
// player. Anything unrecognized gets the generic retry line.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, narrative.ErrChapterNotFound):
		return "Sua história alcançou o fim do material disponível. Novos capítulos em breve! 📖"
	case errors.Is(err, narrative.ErrSessionActive):
		return "Você já está no meio de uma cena! Use /avancar para continuar."
	case errors.Is(err, narrative.ErrNoSession):
		return "Nenhuma cena em andamento. Use /historia ou /desafio para começar."
	case errors.Is(err, players.ErrNotRegistered):
		return "Você ainda não está matriculado na academia. Registre-se primeiro!"
	case errors.Is(err, events.ErrNoActiveEvent):
		return "Nenhum evento especial te aguarda no momento. Fique atento às mensagens! ✨"
	default:
		return "Algo deu errado... Tente novamente em instantes."
	}
}

// choiceCustomID builds the component ID carried by a choice button.
// The owner's user ID rides along so only they can press it.
func choiceCustomID(userID string, index int) string {
	return fmt.Sprintf("choice:%s:%d", userID, index)
}

// parseChoiceCustomID is the inverse of choiceCustomID.
func parseChoiceCustomID(customID string) (userID string, index int, ok bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != "choice" {
		return "", 0, false
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	return parts[1], index, true
}

// choiceComponents renders a step's choices as one button row.
func choiceComponents(userID string, choices []narrative.ChoiceView) []discordgo.MessageComponent {
	buttons := make([]discordgo.MessageComponent, 0, len(choices))
	for _, choice := range choices {
		label := choice.Text
		if choice.Check != "" {
			label = fmt.Sprintf("%s (%s)", choice.Text, choice.Check)
		}
		buttons = append(buttons, discordgo.Button{
			Label:    label,
			Style:    discordgo.PrimaryButton,
			CustomID: choiceCustomID(userID, choice.Index),
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func formatDialogue(view *narrative.DialogueView) string {
	return fmt.Sprintf("**%s:** %s", view.Speaker, view.Text)
}

func formatCompletion(c *narrative.Completion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📖 **Capítulo concluído: %s**\n", c.ChapterTitle)
	fmt.Fprintf(&b, "+%d exp, +%d TUSD\n", c.ExpGained, c.TusdGained)
	if c.LeveledUp {
		fmt.Fprintf(&b, "🎉 Você subiu para o nível %d!\n", c.Level)
	}
	if c.Placed {
		fmt.Fprintf(&b, "🏛️ Seu lugar na hierarquia foi decidido: tier %d\n", c.HierarchyTier)
	}
	if c.Secret != nil && c.SecretAnnounced {
		fmt.Fprintf(&b, "🔮 Segredo descoberto: **%s**\n", c.Secret.Name)
	}
	return b.String()
}

func formatParticipation(p *events.Participation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ **%s**\n", p.EventName)
	fmt.Fprintf(&b, "+%d exp, +%d TUSD\n", p.ExpGained, p.TusdGained)
	if p.HierarchyPoints > 0 {
		fmt.Fprintf(&b, "+%d pontos de hierarquia (tier %d)\n", p.HierarchyPoints, p.HierarchyTier)
	}
	if p.Item != nil {
		fmt.Fprintf(&b, "🎁 Item recebido: %s\n", p.Item.Name)
	}
	if p.Boost != nil {
		fmt.Fprintf(&b, "💪 Poder +%d até %s\n", p.Boost.Amount, p.Boost.ExpiresAt.Format("15:04"))
	}
	if p.LeveledUp {
		fmt.Fprintf(&b, "🎉 Você subiu para o nível %d!\n", p.Level)
	}
	return b.String()
}

// playScene drives the session forward line by line until it needs
// the player again. Runs on its own goroutine; the manager paces each
// line internally.
func (h *Handler) playScene(s Session, channelID, userID string) {
	for {
		step, err := h.narrative.AdvanceDialogue(userID)
		if err != nil {
			if !errors.Is(err, narrative.ErrNoSession) {
				log.Printf("[Bot] Advance failed for %s: %v", userID, err)
				s.ChannelMessageSend(channelID, friendlyError(err))
			}
			return
		}

		if step.Dialogue != nil {
			if _, err := s.ChannelMessageSend(channelID, formatDialogue(step.Dialogue)); err != nil {
				log.Printf("[Bot] Failed to send dialogue to %s: %v", channelID, err)
				return
			}
		}

		switch step.State {
		case narrative.StateAwaitingChoice:
			s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
				Content:    "O que você faz?",
				Components: choiceComponents(userID, step.Choices),
			})
			return
		case narrative.StateChapterComplete:
			s.ChannelMessageSend(channelID, formatCompletion(step.Completion))
			return
		}
	}
}
