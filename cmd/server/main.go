package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/blockkit/blockkit-api/internal/catalog"
	"github.com/blockkit/blockkit-api/internal/config"
	"github.com/blockkit/blockkit-api/internal/entitlement"
	"github.com/blockkit/blockkit-api/internal/github"
	"github.com/blockkit/blockkit-api/internal/handlers"
	"github.com/blockkit/blockkit-api/internal/middleware"
	"github.com/blockkit/blockkit-api/internal/migration"
	"github.com/blockkit/blockkit-api/internal/notification"
	"github.com/blockkit/blockkit-api/internal/repository"
	"github.com/blockkit/blockkit-api/internal/routes"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config  *config.Config
	db      *sql.DB
	catalog *catalog.Catalog
	logger  zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Load the static block catalog.
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("Failed to load catalog")
	}
	logger.Info().Int("items", cat.Len()).Msg("Catalog loaded")

	// Create the application instance.
	app := &application{
		config:  cfg,
		db:      db,
		catalog: cat,
		logger:  logger,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization", "Stripe-Signature"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	// Repositories
	userRepo := repository.NewUserRepository(app.db)
	purchaseRepo := repository.NewPurchaseRepository(app.db)
	teamInviteRepo := repository.NewTeamInviteRepository(app.db)

	// GitHub gateway. A missing token is an operator problem, flagged once
	// here rather than discovered request by request.
	gateway := github.NewClient(app.config.GitHub, logger)
	if !gateway.Configured() {
		logger.Error().Msg("GitHub token is not configured; repository invites will be unavailable")
	}

	// Mailer for team invites
	inviteMailer, err := notification.NewSMTPInviteMailer(app.config.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure invite mailer")
	}

	resolver := entitlement.NewResolver(purchaseRepo, logger)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, purchaseRepo, app.config.JWTSecret, logger)
	repoAccessHandler := handlers.NewRepoAccessHandler(app.catalog, userRepo, resolver, gateway, logger)
	teamInviteHandler := handlers.NewTeamInviteHandler(teamInviteRepo, userRepo, inviteMailer, app.config.Email.InviteURLTemplate, logger)
	billingHandler := handlers.NewBillingHandler(userRepo, purchaseRepo, app.config.Stripe.WebhookSecret, logger)

	return routes.NewRouter(authHandler, repoAccessHandler, teamInviteHandler, billingHandler)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}
