package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academia/pkg/bot"
	"academia/pkg/cache"
	"academia/pkg/config"
	"academia/pkg/content"
	"academia/pkg/events"
	"academia/pkg/narrative"
	"academia/pkg/players"
	"academia/pkg/progress"
	"academia/pkg/surreal"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
)

func main() {
	// Load config.yml
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load .env for secrets
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		log.Fatal("Missing required environment variable: DISCORD_TOKEN")
	}

	surrealHost := os.Getenv("SURREAL_DB_HOST")
	surrealUser := os.Getenv("SURREAL_DB_USER")
	surrealPass := os.Getenv("SURREAL_DB_PASS")
	surrealNS := os.Getenv("SURREAL_DB_NAMESPACE")
	surrealDB := os.Getenv("SURREAL_DB_DATABASE")

	if surrealHost == "" {
		log.Fatal("Missing required environment variable: SURREAL_DB_HOST")
	}
	if surrealUser == "" {
		log.Fatal("Missing required environment variable: SURREAL_DB_USER")
	}
	if surrealPass == "" {
		log.Fatal("Missing required environment variable: SURREAL_DB_PASS")
	}
	if surrealNS == "" {
		surrealNS = "academia" // Default
	}
	if surrealDB == "" {
		surrealDB = "narrativa" // Default
	}

	// Add protocol if missing
	if len(surrealHost) > 0 && surrealHost[:4] != "ws://" && surrealHost[:5] != "wss://" {
		surrealHost = "wss://" + surrealHost + "/rpc"
	}

	log.Printf("Connecting to SurrealDB at %s (NS: %s, DB: %s)", surrealHost, surrealNS, surrealDB)
	surrealClient, err := surreal.NewClient(surrealHost, surrealUser, surrealPass, surrealNS, surrealDB)
	if err != nil {
		log.Fatalf("Failed to connect to SurrealDB: %v", err)
	}
	defer surrealClient.Close()

	playerStore := players.NewSurrealStore(surrealClient)
	clubDirectory := players.NewSurrealClubDirectory(surrealClient)

	var progressStore progress.Store = progress.NewSurrealStore(surrealClient)

	// Redis read-through cache is optional: no REDIS_URL, no cache.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisCache, err := cache.NewRedisCache(redisURL, "academia")
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		ttl := time.Duration(cfg.Cache.ProgressTTLHours * float64(time.Hour))
		progressStore = progress.NewCachedStore(progressStore, redisCache, ttl)
		log.Println("Progress cache enabled (Redis)")
	} else {
		log.Println("REDIS_URL not set, progress cache disabled")
	}

	// Load and validate the narrative content baked into the binary,
	// with optional on-disk overrides.
	var graph *content.Graph
	if contentDir := os.Getenv("CONTENT_DIR"); contentDir != "" {
		graph, err = content.LoadWithOverrides(contentDir)
	} else {
		graph, err = content.LoadDefault()
	}
	if err != nil {
		log.Fatalf("Failed to load narrative content: %v", err)
	}

	locks := progress.NewLocker()

	pacing := narrative.PacingConfig{
		CharsPerSecond: cfg.Pacing.CharsPerSecond,
		MinDuration:    time.Duration(cfg.Pacing.MinSeconds * float64(time.Second)),
		MaxDuration:    time.Duration(cfg.Pacing.MaxSeconds * float64(time.Second)),
	}
	sessionTTL := time.Duration(cfg.Session.TTLMinutes * float64(time.Minute))

	manager := narrative.NewManager(graph, progressStore, playerStore, clubDirectory, locks, pacing, sessionTTL)
	manager.StartEviction(time.Duration(cfg.Session.EvictionSweepMinutes * float64(time.Minute)))

	// Create Discord Session
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatalf("Error creating Discord session: %v", err)
	}

	notifier := bot.NewDiscordNotifier(&bot.DiscordSession{Session: dg}, os.Getenv("EVENT_FALLBACK_CHANNEL_ID"))

	cooldowns := events.Cooldowns{
		Yearly: time.Duration(cfg.Events.YearlyCooldownDays) * 24 * time.Hour,
		Random: time.Duration(cfg.Events.RandomCooldownDays) * 24 * time.Hour,
		Rare:   time.Duration(cfg.Events.RareCooldownDays) * 24 * time.Hour,
	}
	chances := events.Chances{Random: cfg.Events.RandomChance, Rare: cfg.Events.RareChance}
	scheduler := events.NewScheduler(graph, progressStore, playerStore, locks, notifier, cooldowns, chances)
	scheduler.Start(time.Duration(cfg.Events.TickIntervalHours * float64(time.Hour)))

	handler := bot.NewHandler(manager, scheduler)

	// Register Handlers
	dg.AddHandler(handler.InteractionCreate)

	// Open Connection
	if err := dg.Open(); err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}
	defer dg.Close()

	// Register slash commands (empty string = global, or specify guild ID for faster testing)
	guildID := os.Getenv("DISCORD_GUILD_ID") // Optional: set this for faster command updates during development
	registeredCommands, err := bot.RegisterSlashCommands(dg, guildID)
	if err != nil {
		log.Fatalf("Error registering slash commands: %v", err)
	}

	defer func() {
		if err := bot.UnregisterSlashCommands(dg, guildID, registeredCommands); err != nil {
			log.Printf("Error unregistering slash commands: %v", err)
		}
	}()

	log.Println("Academia is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Println("Shutting down...")
}
