// Package server собирает приложение целиком: хранилища, сервисы,
// HTTP маршруты и жизненный цикл с graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/medkeep/medkeep/internal/server/config"
	"github.com/medkeep/medkeep/internal/server/handlers"
	"github.com/medkeep/medkeep/internal/server/inventory"
	"github.com/medkeep/medkeep/internal/server/middleware"
	"github.com/medkeep/medkeep/internal/server/sessions"
	"github.com/medkeep/medkeep/internal/server/storage/boltdb"
	"github.com/medkeep/medkeep/internal/server/storage/sqlite"
	"github.com/medkeep/medkeep/internal/server/web"
)

// App связывает вместе все компоненты сервера
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	sqlite    *sqlite.Storage
	sessionDB *boltdb.Storage
	sessions  *sessions.Service
	limiter   *middleware.RateLimiter
	handler   http.Handler
}

// NewApp инициализирует хранилища, сервисы и маршруты.
// Закрытие ресурсов происходит в Run после остановки сервера
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*App, error) {
	sqliteStorage, err := sqlite.New(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to init sqlite storage: %w", err)
	}

	sessionDB, err := boltdb.New(ctx, cfg.Storage.BoltPath)
	if err != nil {
		_ = sqliteStorage.Close()
		return nil, fmt.Errorf("failed to init session storage: %w", err)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		_ = sqliteStorage.Close()
		_ = sessionDB.Close()
		return nil, fmt.Errorf("failed to init renderer: %w", err)
	}

	sessionService := sessions.NewService(sessionDB, cfg.Auth.SessionTTL.Std())
	inventoryService := inventory.NewService(
		sqliteStorage,
		cfg.Inventory.MaxPerOwner,
		cfg.Inventory.PageSize,
		!cfg.Auth.LegacyOpenRoutes,
	)

	authHandler := handlers.NewAuthHandler(
		logger, sqliteStorage, sessionService, renderer,
		cfg.Auth.BcryptCost, cfg.Auth.SessionTTL.Std(),
	)
	medicineHandler := handlers.NewMedicineHandler(logger, inventoryService, sqliteStorage, renderer)
	healthHandler := handlers.NewHealthHandler(logger, version)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Window.Std(), logger)

	app := &App{
		cfg:       cfg,
		logger:    logger,
		sqlite:    sqliteStorage,
		sessionDB: sessionDB,
		sessions:  sessionService,
		limiter:   limiter,
	}
	app.handler = app.routes(authHandler, medicineHandler, healthHandler)

	return app, nil
}

// routes настраивает маршрутизацию и цепочку middleware
func (a *App) routes(auth *handlers.AuthHandler, medicine *handlers.MedicineHandler, health *handlers.HealthHandler) http.Handler {
	mux := http.NewServeMux()

	// Требует валидную сессию, иначе редирект на /login
	authed := middleware.SessionAuth(a.logger, a.sessions)
	// Требует валидную сессию, иначе 401 JSON
	authedAPI := middleware.SessionAuthAPI(a.logger, a.sessions)
	// Добавляет сессию в контекст, но не блокирует запрос
	open := middleware.SessionContext(a.logger, a.sessions)

	// Публичные маршруты
	mux.HandleFunc("GET /{$}", auth.SignupForm)
	mux.HandleFunc("POST /createUser", auth.Register)
	mux.HandleFunc("GET /login", auth.LoginForm)
	mux.HandleFunc("POST /login", auth.Login)
	mux.HandleFunc("GET /logout", auth.Logout)
	mux.HandleFunc("GET /health", health.Health)

	// Всегда требуют входа
	mux.Handle("GET /dashboard", authed(http.HandlerFunc(auth.Dashboard)))
	mux.Handle("POST /addMedicine", authed(http.HandlerFunc(medicine.Add)))
	mux.Handle("GET /medicines", authed(http.HandlerFunc(medicine.List)))

	// Исторически открытые маршруты: в строгом режиме они тоже
	// закрыты, режим переключается конфигом
	gate := authed
	gateAPI := authedAPI
	if a.cfg.Auth.LegacyOpenRoutes {
		gate = open
		gateAPI = open
	}
	mux.Handle("GET /searchMedicines", gateAPI(http.HandlerFunc(medicine.Search)))
	mux.Handle("GET /editMedicine/{id}", gate(http.HandlerFunc(medicine.EditForm)))
	mux.Handle("POST /updateMedicine/{id}", gate(http.HandlerFunc(medicine.Update)))
	mux.Handle("GET /deleteMedicine/{id}", gate(http.HandlerFunc(medicine.Delete)))

	// Внешняя цепочка: recovery -> логирование -> rate limit
	var handler http.Handler = mux
	handler = a.limiter.Middleware(handler)
	handler = middleware.LoggingWithSkip(a.logger, []string{"/health"})(handler)
	handler = middleware.RecoveryMiddleware(a.logger)(handler)

	return handler
}

// Handler возвращает корневой HTTP handler приложения
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run запускает HTTP сервер и фоновую очистку сессий, блокируется
// до отмены контекста, затем останавливает все с таймаутом
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Address,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("address", a.cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go a.sessionCleanupLoop(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("HTTP server failed", slog.Any("error", err))
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to shutdown server gracefully", slog.Any("error", err))
		if runErr == nil {
			runErr = err
		}
	}

	a.limiter.Stop()

	if err := a.sessionDB.Close(); err != nil {
		a.logger.Error("failed to close session storage", slog.Any("error", err))
	}
	if err := a.sqlite.Close(); err != nil {
		a.logger.Error("failed to close sqlite storage", slog.Any("error", err))
	}

	a.logger.Info("server stopped")
	return runErr
}

// sessionCleanupLoop периодически удаляет истекшие сессии
func (a *App) sessionCleanupLoop(ctx context.Context) {
	interval := a.cfg.Auth.CleanupInterval.Std()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := a.sessions.DeleteExpired(ctx)
			if err != nil {
				a.logger.Error("failed to delete expired sessions", slog.Any("error", err))
				continue
			}
			if deleted > 0 {
				a.logger.Info("expired sessions cleaned up", slog.Int("deleted", deleted))
			}
		}
	}
}
