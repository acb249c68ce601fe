package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/staldhusene/faellesspisning/internal/auth"
	"github.com/staldhusene/faellesspisning/internal/cache"
	"github.com/staldhusene/faellesspisning/internal/config"
	"github.com/staldhusene/faellesspisning/internal/database"
	"github.com/staldhusene/faellesspisning/internal/dinner"
	"github.com/staldhusene/faellesspisning/internal/handlers"
	"github.com/staldhusene/faellesspisning/internal/logging"
	"github.com/staldhusene/faellesspisning/internal/mapper"
	"github.com/staldhusene/faellesspisning/internal/notifier"
	"github.com/staldhusene/faellesspisning/internal/sheets"
)

func main() {
	// Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("unknown timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}
	ensureSecret(&cfg.CookieSecret, "COOKIE_SECRET")
	ensureSecret(&cfg.CSRFKey, "CSRF_KEY")

	// Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("failed to connect database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	houses := database.NewHouseStore(db)
	changes := database.NewChangeLogStore(db)

	// Spreadsheet access
	credentials, err := os.ReadFile(cfg.GoogleCredentialsFile)
	if err != nil {
		slog.Error("failed to read service account key", "path", cfg.GoogleCredentialsFile, "error", err)
		os.Exit(1)
	}
	values, err := sheets.NewGoogleValues(context.Background(), cfg.SpreadsheetID, credentials)
	if err != nil {
		slog.Error("failed to create sheets client", "error", err)
		os.Exit(1)
	}
	gateway := sheets.NewGateway(values, sheets.Options{
		CookSheet:  cfg.CookSheet,
		WindowRows: cfg.WindowRows,
		Timeout:    cfg.SheetsTimeout,
	})

	svc := dinner.NewService(
		gateway,
		mapper.New(loc, cfg.SheetDateLayouts),
		cache.New[sheets.Grids](cfg.CacheTTL),
		changes,
		newNotifier(cfg),
	)

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, houses)
	dinnerHandler := handlers.NewDinnerHandler(svc, houses)
	pageHandler, err := handlers.NewPageHandler(svc, houses, authHandler, cfg.SpreadsheetID, loc)
	if err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	// Initialize Router
	r := chi.NewRouter()
	handlers.RegisterRoutes(r, cfg, authHandler, dinnerHandler, pageHandler)

	// Start Server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("starting server", "port", cfg.Port, "spreadsheet", cfg.SpreadsheetID)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// newNotifier returns nil when no Discord bot is configured.
func newNotifier(cfg *config.Config) notifier.Notifier {
	if cfg.DiscordBotToken == "" || cfg.DiscordNotificationsChannelID == "" {
		slog.Info("discord notifications disabled")
		return nil
	}
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		slog.Warn("discord notifier not initialized", "error", err)
		return nil
	}
	return notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)
}

// ensureSecret fills an unset secret with random bytes. Cookies signed with it
// do not survive a restart.
func ensureSecret(secret *string, name string) {
	if *secret != "" {
		return
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		slog.Error("failed to generate secret", "name", name, "error", err)
		os.Exit(1)
	}
	*secret = hex.EncodeToString(b)
	slog.Warn("secret not configured, using a random one", "name", name)
}
