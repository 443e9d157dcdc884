package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tradejournal/internal/auth"
	"tradejournal/internal/broker"
	"tradejournal/internal/broker/snaptrade"
	"tradejournal/internal/broker/webull"
	"tradejournal/internal/config"
	"tradejournal/internal/connect"
	"tradejournal/internal/database"
	"tradejournal/internal/demo"
	"tradejournal/internal/handlers"
	"tradejournal/internal/journal"
	"tradejournal/internal/marketdata"
	"tradejournal/internal/middleware"
	"tradejournal/internal/repository"
	"tradejournal/internal/sync"
)

// App holds the application dependencies.
type App struct {
	config           *config.Config
	db               *database.DB
	router           *chi.Mux
	authMiddleware   *middleware.AuthMiddleware
	authHandler      *handlers.AuthHandler
	brokerHandler    *handlers.BrokerHandler
	syncHandler      *handlers.SyncHandler
	journalHandler   *handlers.JournalHandler
	watchlistHandler *handlers.WatchlistHandler
	stream           *marketdata.Channel
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateAggregator(); err != nil {
		log.Printf("Warning: %v, broker connections will be unavailable", err)
	}

	// Initialize database
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// In demo mode, seed demo data
	if cfg.DemoMode {
		seeder := demo.NewSeeder(db)
		if err := seeder.SeedIfEmpty(); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	// Credentials are encrypted at rest
	encryptor, err := broker.NewEncryptor(cfg.EncryptionSecret)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	// Create repositories
	userRepo := repository.NewUserRepository(db)
	credentialRepo := repository.NewCredentialRepository(db, encryptor)
	sessionRepo := repository.NewConnectionSessionRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)
	syncHistoryRepo := repository.NewSyncHistoryRepository(db)

	// Create aggregator client
	aggregator, err := snaptrade.NewClient(cfg.SnapTrade)
	if err != nil {
		log.Fatalf("Failed to create aggregator client: %v", err)
	}

	// Create services
	journalService := journal.NewService(tradeRepo)
	syncStore := sync.NewStore(aggregator, credentialRepo, syncHistoryRepo, journalService.ReconcileOrders)
	flowController := connect.NewController(aggregator, credentialRepo, sessionRepo, cfg.SnapTrade.RedirectURI, syncStore.SyncAll)
	quoteClient := marketdata.NewQuoteClient(cfg.MarketData)

	// Create session manager
	sessionManager := auth.NewSessionManager(db)

	// Create middleware
	authMiddleware := middleware.NewAuthMiddleware(sessionManager, userRepo)

	// Create handlers
	deps := handlers.NewDependencies().
		WithUserRepo(userRepo).
		WithCredentialRepo(credentialRepo).
		WithTradeRepo(tradeRepo).
		WithWatchlistRepo(watchlistRepo).
		WithSyncHistoryRepo(syncHistoryRepo).
		WithSessionManager(sessionManager).
		WithAggregator(aggregator).
		WithFlowController(flowController).
		WithSyncStore(syncStore).
		WithJournal(journalService).
		WithQuotes(quoteClient).
		WithSessionMaxAge(cfg.Session.MaxAge).
		WithWebullImport(newWebullImport(cfg.Webull))

	// Create application
	app := &App{
		config:           cfg,
		db:               db,
		authMiddleware:   authMiddleware,
		authHandler:      handlers.NewAuthHandler(deps),
		brokerHandler:    handlers.NewBrokerHandler(deps),
		syncHandler:      handlers.NewSyncHandler(deps),
		journalHandler:   handlers.NewJournalHandler(deps),
		watchlistHandler: handlers.NewWatchlistHandler(deps),
	}

	// Open the market data stream if one is configured
	if cfg.MarketData.StreamURL != "" {
		app.stream = marketdata.NewChannel(cfg.MarketData)
		if err := app.stream.Open(context.Background()); err != nil {
			log.Printf("Warning: market data stream unavailable: %v", err)
		}
	}

	// Setup router
	app.setupRouter()

	// Create server
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://%s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if app.stream != nil {
		app.stream.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func (app *App) setupRouter() {
	r := chi.NewRouter()

	// Chi middleware (aliased as chimw to avoid conflict with our middleware package)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Compress(5))

	// Security headers for all responses
	r.Use(middleware.SecurityHeaders)

	// Load user from session for all routes
	r.Use(app.authMiddleware.LoadUser)

	// Health check
	r.Get("/health", app.handleHealth)

	// Auth routes, rate limited to prevent brute force attacks
	r.Group(func(r chi.Router) {
		r.Use(middleware.LimitAuth)
		r.Post("/api/auth/register", app.authHandler.Register)
		r.Post("/api/auth/login", app.authHandler.Login)
	})

	// Portal callbacks arrive without a local session cookie
	r.Group(func(r chi.Router) {
		r.Use(middleware.LimitStrict)
		r.Get("/api/broker/callback", app.brokerHandler.Callback)
		r.Post("/api/broker/events", app.brokerHandler.PortalEvent)
	})

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(app.authMiddleware.RequireAuth)
		r.Use(middleware.LimitAPI)

		r.Post("/api/auth/logout", app.authHandler.Logout)
		r.Get("/api/auth/me", app.authHandler.Me)

		// Broker connections
		r.Get("/api/broker/brokerages", app.brokerHandler.Brokerages)
		r.Post("/api/broker/connect", app.brokerHandler.Connect)
		r.Get("/api/broker/connect/{sessionID}/qr", app.brokerHandler.ConnectQR)
		r.Get("/api/broker/status", app.brokerHandler.Status)
		r.Post("/api/broker/disconnect", app.brokerHandler.Disconnect)

		// Data sync
		r.Post("/api/sync", app.syncHandler.Trigger)
		r.Post("/api/sync/account", app.syncHandler.RefreshAccount)
		r.Get("/api/sync/snapshot", app.syncHandler.Snapshot)
		r.Get("/api/sync/history", app.syncHandler.History)

		// Trade journal
		r.Get("/api/journal/trades", app.journalHandler.Trades)
		r.Get("/api/journal/summary", app.journalHandler.Summary)
		r.Post("/api/journal/import/webull", app.journalHandler.ImportWebull)

		// Watchlist
		r.Get("/api/watchlist", app.watchlistHandler.List)
		r.Post("/api/watchlist", app.watchlistHandler.Add)
		r.Delete("/api/watchlist/{symbol}", app.watchlistHandler.Remove)
		r.Get("/api/watchlist/{symbol}/quote", app.watchlistHandler.Quote)
	})

	app.router = r
}

// handleHealth returns the server health status.
func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// newWebullImport builds a factory that creates a fresh direct-login client
// per import request.
func newWebullImport(cfg config.Webull) handlers.WebullImportFunc {
	return func(ctx context.Context) (broker.TradeSource, error) {
		client := webull.NewClient(cfg.BaseURL)
		if err := client.Init(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}
