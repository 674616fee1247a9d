package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/blob"
	httpapi "github.com/aussiebroadwan/strongbox/internal/strongbox/http"
	vaultmail "github.com/aussiebroadwan/strongbox/internal/strongbox/mail"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/service"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store/drivers/sqlite"
	"github.com/aussiebroadwan/strongbox/pkg/cryptox"
	"github.com/aussiebroadwan/strongbox/pkg/httpx"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application owns the vault's dependencies and their lifecycle.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	blobs      blob.Store
	keyManager *jwtx.KeyManager
	mail       *vaultmail.Dispatcher

	credentials  *service.CredentialService
	sessions     *service.SessionService
	envelope     *service.EnvelopeEngine
	ledger       *service.LedgerService
	vault        *service.VaultService
	housekeeping *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds an Application with every dependency initialized.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "strongbox",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := initMasterKey(app.cfg, app.logger); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	blobs, err := blob.Open(ctx, app.cfg.Blob)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	app.blobs = blobs
	app.logger.Info("blob store ready", "driver", app.cfg.Blob.Driver)

	keyManager, err := InitSigningKeys(ctx, app.cfg, app.db, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initMail(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run serves until SIGINT or SIGTERM, or until the server or housekeeping
// fails, then shuts down gracefully.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.logger.Info("strongbox starting", "port", app.cfg.Port, "version", BuildVersion)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.housekeeping.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutdown requested")
		return app.shutdownServer()
	})

	err := g.Wait()
	if closeErr := app.Close(); err == nil {
		err = closeErr
	}
	return err
}

// shutdownServer gives in-flight requests the grace period to finish.
func (app *Application) shutdownServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Close flushes queued mail and closes the database.
func (app *Application) Close() error {
	app.mail.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("strongbox stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate&_time_format=sqlite",
		app.cfg.DatabaseFile,
	)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initMail() error {
	var mailer vaultmail.Mailer
	switch app.cfg.MailDriver {
	case "smtp":
		m, err := vaultmail.NewSMTPMailer(app.cfg.SMTP)
		if err != nil {
			return fmt.Errorf("failed to configure smtp mailer: %w", err)
		}
		mailer = m
	case "log", "":
		mailer = vaultmail.LogMailer{Logger: app.logger}
		app.logger.Warn("mail is written to the log; do not use the log driver in production")
	default:
		return fmt.Errorf("unknown mail driver %q", app.cfg.MailDriver)
	}

	app.mail = &vaultmail.Dispatcher{Mailer: mailer, Timeout: app.cfg.MailTimeout}
	return nil
}

func (app *Application) initServices() {
	app.credentials = &service.CredentialService{
		Store:    app.db,
		Mail:     app.mail,
		Issuer:   app.cfg.Issuer,
		ResetTTL: app.cfg.ResetTokenTTL,
		ResetURL: app.cfg.ResetURL,
	}

	app.sessions = &service.SessionService{
		Store:       app.db,
		Credentials: app.credentials,
		Mail:        app.mail,
		Signer:      app.keyManager,
		Verifier:    app.keyManager.Verifier,
		Issuer:      app.cfg.Issuer,
		AccessTTL:   app.cfg.AccessTokenTTL,
		OTPTTL:      app.cfg.OTPTTL,
	}

	app.envelope = &service.EnvelopeEngine{KDF: app.cfg.KDF}

	app.ledger = &service.LedgerService{
		Store:        app.db,
		Envelope:     app.envelope,
		LinkMaxHours: app.cfg.LinkMaxHours,
	}

	app.vault = &service.VaultService{
		Store:          app.db,
		Blobs:          app.blobs,
		Envelope:       app.envelope,
		Ledger:         app.ledger,
		MaxUploadBytes: app.cfg.MaxUploadBytes,
		BlobRetries:    app.cfg.BlobRetries,
	}

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.vault,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeeping.LinkRetention = app.cfg.LinkRetention
	app.housekeeping.SessionRetention = app.cfg.SessionRetention
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Credentials = app.credentials
	router.Sessions = app.sessions
	router.Ledger = app.ledger
	router.Vault = app.vault
	router.Cookies = httpx.CookieOptions{
		Secure:   app.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	router.PublicBaseURL = app.cfg.PublicBaseURL
	router.AllowedOrigins = app.cfg.AllowedOrigins
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
