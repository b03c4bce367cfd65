package bot

import (
	"fmt"
	"log"
	"strings"

	"academia/pkg/narrative"
	"academia/pkg/progress"

	"github.com/bwmarrin/discordgo"
)

// SlashCommands defines all available slash commands
var SlashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "historia",
		Description: "Começa ou retoma o capítulo atual da sua história",
	},
	{
		Name:        "desafio",
		Description: "Enfrenta o próximo capítulo da sua trilha de desafios",
	},
	{
		Name:        "avancar",
		Description: "Retoma uma cena que ficou parada",
	},
	{
		Name:        "bimestre",
		Description: "Avança o calendário acadêmico em um passo",
	},
	{
		Name:        "relacionamento",
		Description: "Mostra sua afinidade com os personagens",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "personagem",
				Description: "Nome do personagem (vazio lista todos)",
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "delta",
				Description: "Ajuste de afinidade a aplicar",
				Required:    false,
			},
		},
	},
	{
		Name:        "status-historia",
		Description: "Resumo do seu progresso na história",
	},
	{
		Name:        "evento",
		Description: "Participa do evento especial que te aguarda",
	},
}

// SlashCommandHandlers maps command names to their handler functions
var SlashCommandHandlers = map[string]func(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate){
	"historia":        handleHistoriaCommand,
	"desafio":         handleDesafioCommand,
	"avancar":         handleAvancarCommand,
	"bimestre":        handleBimestreCommand,
	"relacionamento":  handleRelacionamentoCommand,
	"status-historia": handleStatusHistoriaCommand,
	"evento":          handleEventoCommand,
}

// InteractionCreate handles slash commands and choice buttons
func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		commandName := i.ApplicationCommandData().Name
		if handler, ok := SlashCommandHandlers[commandName]; ok {
			handler(h, s, i)
		} else {
			log.Printf("Unknown slash command: %s", commandName)
		}
	case discordgo.InteractionMessageComponent:
		h.handleChoiceButton(s, i)
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("Error responding to interaction: %v", err)
	}
}

func handleHistoriaCommand(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, _, err := interactionUser(i)
	if err != nil {
		return
	}

	session, err := h.narrative.StartOrResumeStory(userID)
	if err != nil {
		respond(s, i, friendlyError(err), true)
		return
	}

	respond(s, i, fmt.Sprintf("📖 **Ano %d, Capítulo %d: %s**", session.Year, session.ChapterNum, session.Chapter.Title), false)
	go h.playScene(&DiscordSession{Session: s}, i.ChannelID, userID)
}

func handleDesafioCommand(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, _, err := interactionUser(i)
	if err != nil {
		return
	}

	session, err := h.narrative.StartOrResumeChallenge(userID)
	if err != nil {
		respond(s, i, friendlyError(err), true)
		return
	}

	respond(s, i, fmt.Sprintf("⚔️ **Desafio tier %d, Capítulo %d: %s**", session.Tier, session.ChapterNum, session.Chapter.Title), false)
	go h.playScene(&DiscordSession{Session: s}, i.ChannelID, userID)
}

func handleAvancarCommand(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, _, err := interactionUser(i)
	if err != nil {
		return
	}

	if !h.narrative.HasSession(userID) {
		respond(s, i, friendlyError(narrative.ErrNoSession), true)
		return
	}

	respond(s, i, "▶️ Retomando a cena...", true)
	go h.playScene(&DiscordSession{Session: s}, i.ChannelID, userID)
}

func handleBimestreCommand(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, _, err := interactionUser(i)
	if err != nil {
		return
	}

	calendar, err := h.narrative.AdvanceBimester(userID)
	if err != nil {
		respond(s, i, friendlyError(err), true)
		return
	}

	if calendar.Ferias {
		respond(s, i, fmt.Sprintf("🏖️ Férias! Fim do %dº bimestre do ano %d.", calendar.BimestreCorrente, calendar.AnoCorrente), false)
		return
	}
	respond(s, i, fmt.Sprintf("🏫 Início do %dº bimestre do ano %d.", calendar.BimestreCorrente, calendar.AnoCorrente), false)
}

func handleRelacionamentoCommand(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, _, err := interactionUser(i)
	if err != nil {
		return
	}

	var character string
	var delta *int
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "personagem":
			character = opt.StringValue()
		case "delta":
			d := int(opt.IntValue())
			delta = &d
		}
	}
	if delta != nil && character == "" {
		respond(s, i, "Informe o personagem para ajustar a afinidade.", true)
		return
	}

	relationships, err := h.narrative.GetOrSetRelationship(userID, character, delta)
	if err != nil {
		respond(s, i, friendlyError(err), true)
		return
	}
	if len(relationships) == 0 {
		respond(s, i, "Você ainda não conhece ninguém de verdade. Viva a história! 💬", true)
		return
	}

	var b strings.Builder
	b.WriteString("**💞 Relacionamentos**\n")
	for name, rel := range relationships {
		fmt.Fprintf(&b, "• %s: %d (%s)\n", name, rel.Affinity, rel.Status)
	}
	respond(s, i, b.String(), true)
}

func handleStatusHistoriaCommand(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, _, err := interactionUser(i)
	if err != nil {
		return
	}

	status, err := h.narrative.GetStoryStatus(userID)
	if err != nil {
		respond(s, i, friendlyError(err), true)
		return
	}

	respond(s, i, formatStatus(status), true)
}

func formatStatus(status *narrative.Status) string {
	var b strings.Builder
	b.WriteString("**📚 Sua História**\n")
	fmt.Fprintf(&b, "Ano %d, Capítulo %d", status.CurrentYear, status.CurrentChapter)
	if status.ChapterTitle != "" {
		fmt.Fprintf(&b, ": %s", status.ChapterTitle)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Capítulos concluídos: %d\n", status.CompletedChapters)
	if cursor := status.ChallengeCursor; cursor != nil {
		fmt.Fprintf(&b, "Desafio: tier %d, capítulo %d\n", cursor.Tier, cursor.Chapter)
	}
	if status.HierarchyTier > 0 {
		fmt.Fprintf(&b, "Hierarquia: tier %d (%d pontos acumulados)\n", status.HierarchyTier, status.HierarchyPoints)
	}
	if len(status.DiscoveredSecrets) > 0 {
		fmt.Fprintf(&b, "Segredos: %s\n", strings.Join(status.DiscoveredSecrets, ", "))
	}
	fmt.Fprintf(&b, "Calendário: %s\n", formatCalendar(status.Calendar))
	if len(status.RecentLog) > 0 {
		b.WriteString("\n**Últimos acontecimentos**\n")
		for _, line := range status.RecentLog {
			fmt.Fprintf(&b, "• %s\n", line)
		}
	}
	return b.String()
}

func formatCalendar(calendar progress.Calendar) string {
	if calendar.Ferias {
		return fmt.Sprintf("férias, ano %d", calendar.AnoCorrente)
	}
	return fmt.Sprintf("%dº bimestre, ano %d", calendar.BimestreCorrente, calendar.AnoCorrente)
}

func handleEventoCommand(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, _, err := interactionUser(i)
	if err != nil {
		return
	}

	participation, err := h.events.Participate(userID)
	if err != nil {
		respond(s, i, friendlyError(err), true)
		return
	}

	respond(s, i, formatParticipation(participation), false)
}

// handleChoiceButton resolves a choice button press. Only the player
// who owns the scene can press their buttons.
func (h *Handler) handleChoiceButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ownerID, index, ok := parseChoiceCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}
	userID, _, err := interactionUser(i)
	if err != nil {
		return
	}
	if userID != ownerID {
		respond(s, i, "Essa escolha não é sua. 👀", true)
		return
	}

	step, err := h.narrative.ResolveChoice(userID, index)
	if err != nil {
		respond(s, i, friendlyError(err), true)
		return
	}

	if step.CheckFailed {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    "❌ Você não conseguiu... Escolha outro caminho.",
				Components: choiceComponents(userID, step.Choices),
			},
		})
		if err != nil {
			log.Printf("Error responding to failed check: %v", err)
		}
		return
	}

	respond(s, i, fmt.Sprintf("➡️ *%s*", step.ChoiceTaken), false)

	if step.Completion != nil {
		s.ChannelMessageSend(i.ChannelID, formatCompletion(step.Completion))
		return
	}
	go h.playScene(&DiscordSession{Session: s}, i.ChannelID, userID)
}

// RegisterSlashCommands registers all slash commands with Discord
func RegisterSlashCommands(s *discordgo.Session, guildID string) ([]*discordgo.ApplicationCommand, error) {
	log.Println("Registering slash commands...")

	registeredCommands := make([]*discordgo.ApplicationCommand, len(SlashCommands))

	for i, cmd := range SlashCommands {
		// Register globally (guildID = "") or for a specific guild
		registeredCmd, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			log.Printf("Cannot create '%s' command: %v", cmd.Name, err)
			return nil, err
		}
		registeredCommands[i] = registeredCmd
		log.Printf("Registered command: %s", cmd.Name)
	}

	return registeredCommands, nil
}

// UnregisterSlashCommands removes all registered slash commands
func UnregisterSlashCommands(s *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand) error {
	log.Println("Unregistering slash commands...")

	for _, cmd := range commands {
		err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID)
		if err != nil {
			log.Printf("Cannot delete '%s' command: %v", cmd.Name, err)
			return err
		}
		log.Printf("Unregistered command: %s", cmd.Name)
	}

	return nil
}
