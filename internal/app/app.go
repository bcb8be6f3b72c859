package app

import (
	"context"
	"os"

	"waiverdesk/config"
	"waiverdesk/internal/database"
	"waiverdesk/internal/handlers/middleware"
	"waiverdesk/internal/logger"
	"waiverdesk/internal/repositories"
	"waiverdesk/internal/services"
	"waiverdesk/internal/typeahead"
	"waiverdesk/internal/websockets"

	adminController "waiverdesk/internal/controllers/admin"
	searchController "waiverdesk/internal/controllers/search"
	waiverController "waiverdesk/internal/controllers/waiver"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	Config     config.Config
	Clock      typeahead.Clock

	// Services
	TransactionService       *services.TransactionService
	CacheInvalidationService *services.CacheInvalidationService
	TokenService             *services.TokenService
	SuggestionCache          typeahead.Cache

	// Repositories
	WaiverRepo    repositories.WaiverRepository
	AdminUserRepo repositories.AdminUserRepository

	// Controllers
	SearchController *searchController.SearchController
	WaiverController *waiverController.WaiverController
	AdminController  *adminController.AdminController
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	logger.Init(os.Stdout, config.LogLevel, config.LogFormat)

	return NewWithConfig(config, typeahead.RealClock{})
}

// NewWithConfig wires the application against an already loaded config. The
// schema is migrated before anything touches the store.
func NewWithConfig(config config.Config, clock typeahead.Clock) (*App, error) {
	log := logger.New("app").Function("NewWithConfig")

	if clock == nil {
		clock = typeahead.RealClock{}
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	if _, err := db.MigrateUp(); err != nil {
		_ = db.Close()
		return &App{}, log.Err("failed to migrate database", err)
	}

	suggestionCache := newSuggestionCache(db, config, clock)

	// Initialize services
	transactionService := services.NewTransactionService(db)
	cacheInvalidationService := services.NewCacheInvalidationService(suggestionCache)
	tokenService := services.NewTokenService(config.JWTSecret(), config.SecurityTokenTTL)
	if db.Cache.Enabled() {
		tokenService.WithRevocations(database.NewTokenRevocations(db.Cache.General))
	}

	// Initialize repositories
	waiverRepo := repositories.NewWaiver(db, config.SearchStrategy, clock)
	adminUserRepo := repositories.NewAdminUser(db)

	// Initialize controllers with repositories and services
	middleware := middleware.New(tokenService, config)
	searchController := searchController.New(waiverRepo, suggestionCache)
	waiverController := waiverController.New(waiverRepo, transactionService, cacheInvalidationService, clock)
	adminController := adminController.New(adminUserRepo, tokenService, transactionService)

	websocket := websockets.New(searchController, suggestionCache, config, clock)

	app := &App{
		Database:                 db,
		Config:                   config,
		Clock:                    clock,
		Middleware:               middleware,
		Websocket:                websocket,
		TransactionService:       transactionService,
		CacheInvalidationService: cacheInvalidationService,
		TokenService:             tokenService,
		SuggestionCache:          suggestionCache,
		WaiverRepo:               waiverRepo,
		AdminUserRepo:            adminUserRepo,
		SearchController:         searchController,
		WaiverController:         waiverController,
		AdminController:          adminController,
	}

	if err := app.validate(); err != nil {
		_ = db.Close()
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

// newSuggestionCache shares suggestions across processes through valkey when
// a cache server is configured and falls back to an in-process cache.
func newSuggestionCache(db database.DB, config config.Config, clock typeahead.Clock) typeahead.Cache {
	if db.Cache.Enabled() {
		return database.NewSuggestionCache(db.Cache.Suggestions, config.SearchCacheTTL, config.IsDevelopment())
	}
	return typeahead.NewMemoryCache(config.SearchCacheTTL, clock)
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.TransactionService,
		a.CacheInvalidationService,
		a.TokenService,
		a.SuggestionCache,
		a.WaiverRepo,
		a.AdminUserRepo,
		a.SearchController,
		a.WaiverController,
		a.AdminController,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Ping(ctx context.Context) error {
	return a.Database.Ping(ctx)
}

func (a *App) Close() (err error) {
	if a.Websocket != nil {
		a.Websocket.Close()
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
