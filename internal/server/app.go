// Package server initializes and runs the application: it wires the
// configuration, database, cipher, notifier and services together, starts
// the HTTP server and the verification cleanup job, and handles graceful
// shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/cryptox"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/logging"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/config"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/httpapi"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/notify"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/repomanager"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	verification *services.VerificationService
	httpServer   *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// A bad encryption secret must stop startup: writing messages under a
	// wrong key would make them unreadable forever.
	key, err := cryptox.DeriveKey(cfg.EncryptionSecret, cfg.EncryptionSalt)
	if err != nil {
		return nil, fmt.Errorf("encryption key init error: %w", err)
	}
	cipher, err := cryptox.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	notifier := notify.NewResendClient(cfg.ResendAPIKey, cfg.EmailFrom)

	userService := services.NewUserService(db, repos, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	messageService := services.NewMessageService(db, repos, cipher, notifier, logger)
	verificationService := services.NewVerificationService(db, repos, notifier, logger)
	fileService := services.NewFileService(cfg)

	httpServer := httpapi.NewServer(cfg.EndpointAddrHTTP, logger, []byte(cfg.SecretKey),
		userService, messageService, verificationService, fileService)

	return &App{
		config:       cfg,
		logger:       logger,
		db:           db,
		verification: verificationService,
		httpServer:   httpServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.verification.RunCleanup(ctx, app.config.VerificationCleanupInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
