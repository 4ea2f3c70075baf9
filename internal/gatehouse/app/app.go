package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	httpapi "github.com/fennelworks/gatehouse/internal/gatehouse/http"
	"github.com/fennelworks/gatehouse/internal/gatehouse/policy"
	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/fennelworks/gatehouse/pkg/cryptox"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/mailx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the gatehouse service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	mailer mailx.Mailer

	sessionService       *service.SessionService
	signupService        *service.SignupService
	verificationService  *service.VerificationService
	passwordResetService *service.PasswordResetService
	authorizeService     *service.AuthorizeService
	rolesService         *service.RolesService
	federationService    *service.FederationService // Optional: only with providers configured
	housekeepingService  *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initMailer()
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gatehouse starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatehouse...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.federationService != nil {
		app.federationService.Close()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatehouse stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

func (app *Application) initMailer() {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("no SMTP relay configured, emails are logged instead of sent")
		app.mailer = &mailx.LogMailer{Logger: app.logger}
		return
	}

	mailer, err := mailx.NewSMTPMailer(mailx.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
	})
	if err != nil {
		app.logger.Error("failed to build SMTP mailer, falling back to log-only delivery", "error", err)
		app.mailer = &mailx.LogMailer{Logger: app.logger}
		return
	}
	app.mailer = mailer
}

func (app *Application) initServices() error {
	app.sessionService = &service.SessionService{
		Store: app.db,
		TTL:   app.cfg.SessionTTL,
	}

	app.verificationService = &service.VerificationService{
		Store:      app.db,
		Mailer:     app.mailer,
		Sessions:   app.sessionService,
		BaseURL:    app.cfg.BaseURL,
		TokenTTL:   app.cfg.VerificationTTL,
		AutoSignIn: app.cfg.AutoSignIn,
	}

	app.signupService = &service.SignupService{
		Store:        app.db,
		Verification: app.verificationService,
		Policy:       policy.Policy{Development: app.cfg.Development()},
		AdminEmails:  app.cfg.AdminEmails,
	}

	app.passwordResetService = &service.PasswordResetService{
		Store:        app.db,
		Verification: app.verificationService,
		Sessions:     app.sessionService,
	}

	app.authorizeService = &service.AuthorizeService{
		Sessions:    app.sessionService,
		Permissions: domain.NewPermissions(),
	}

	app.rolesService = &service.RolesService{
		Store:     app.db,
		Authorize: app.authorizeService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	if providers := app.federatedProviders(); len(providers) > 0 {
		federation, err := service.NewFederationService(
			app.db,
			app.sessionService,
			app.cfg.AdminEmails,
			providers,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize federation: %w", err)
		}
		app.federationService = federation
		app.logger.Info("federated sign-in enabled", "providers", len(providers))
	}

	return nil
}

func (app *Application) federatedProviders() []service.Provider {
	var providers []service.Provider
	if app.cfg.GoogleClientID != "" {
		providers = append(providers, service.Provider{
			Name:     "google",
			Issuer:   "https://accounts.google.com",
			JWKSURL:  "https://www.googleapis.com/oauth2/v3/certs",
			Audience: app.cfg.GoogleClientID,
		})
	}
	return providers
}

func (app *Application) initHTTP() {
	guard := httpx.NewGuard(httpx.RouteConfig{
		Protected:   []string{"/profile", "/admin/dashboard"},
		AuthOnly:    []string{"/auth"},
		LoginPath:   "/auth/login",
		LandingPath: "/profile",
	})

	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.logger,
		guard,
		!app.cfg.Development(),
	)

	router.SignupService = app.signupService
	router.SessionService = app.sessionService
	router.VerificationService = app.verificationService
	router.PasswordResetService = app.passwordResetService
	router.RolesService = app.rolesService
	router.FederationService = app.federationService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
