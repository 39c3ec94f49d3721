// @title crewcall API
// @version 1.0
// @description Production scheduling and crew sign-up for a media organization.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crewcall/config"
	_ "crewcall/docs"
	"crewcall/internal/adapters/auth"
	"crewcall/internal/adapters/calendar"
	"crewcall/internal/adapters/email"
	"crewcall/internal/adapters/permissions"
	"crewcall/internal/adapters/rms"
	httpdelivery "crewcall/internal/delivery/http"
	"crewcall/internal/delivery/http/controllers"
	"crewcall/internal/delivery/http/middleware"
	"crewcall/internal/jobs"
	"crewcall/internal/repository/postgres"
	"crewcall/internal/services"

	_ "github.com/lib/pq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "crewcall: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	pingCtx, cancel := context.WithTimeout(ctx, cfg.ContextTimeout)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if cfg.RunMigrations {
		if err := postgres.Migrate(db); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	attendeeRepo := postgres.NewAttendeeRepository(db)
	seriesRepo := postgres.NewRecurringSeriesRepository(db)
	sheetRepo := postgres.NewSignupSheetRepository(db)
	vacancyRepo := postgres.NewVacancyRepository(db)
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	txr := postgres.NewTransactor(db)

	// Adapters
	caps := permissions.NewRoleCapabilities(roleRepo)
	gateway := rms.NewHTTPGateway(nil, cfg.RMSBaseURL, cfg.RMSAPIKey)
	if cfg.RMSBaseURL == "" {
		logger.Warn("RMS_BASE_URL not set, kit clash checks are disabled")
	}
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	feed := calendar.NewICSFeed("crewcall", "crewcall")

	// Services
	notifications := services.NewNotificationService(userRepo, mailer, renderer, logger)
	eventService := services.NewEventService(eventRepo, attendeeRepo, seriesRepo, sheetRepo, caps, gateway, txr, cfg.HomeTimezone, cfg.ContextTimeout)
	recurringService := services.NewRecurringEventService(eventRepo, seriesRepo, caps, txr, cfg.HomeTimezone, cfg.ContextTimeout)
	sheetService := services.NewSignupSheetService(eventRepo, sheetRepo, caps, txr, cfg.ContextTimeout)
	signupService := services.NewSignupService(sheetRepo, notifications, logger, cfg.ContextTimeout)
	vacancyService := services.NewVacancyService(vacancyRepo, eventRepo, cfg.HomeTimezone, cfg.ContextTimeout)

	router := httpdelivery.NewRouter(httpdelivery.Controllers{
		Events:    controllers.NewEventController(logger, eventService, cfg.HomeTimezone),
		Recurring: controllers.NewRecurringController(logger, recurringService, cfg.HomeTimezone),
		Sheets:    controllers.NewSignupSheetController(logger, sheetService, signupService),
		Vacancies: controllers.NewVacancyController(logger, vacancyService, cfg.HomeTimezone),
		Me:        controllers.NewMeController(logger, eventService, feed),
	}, verifier, logger)

	var handler http.Handler = router
	handler = middleware.CORS(cfg.AllowedOrigins, handler)
	handler = middleware.Recover(logger, handler)
	handler = middleware.LoggingMiddleware(logger, handler)

	if cfg.VacancyDigestCron != "" {
		digest, err := jobs.NewVacancyDigest(cfg.VacancyDigestCron, cfg.VacancyDigestTo, cfg.HomeTimezone, vacancyService, notifications, logger)
		if err != nil {
			return err
		}
		digest.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			digest.Stop(stopCtx)
		}()
		logger.Info("vacancy digest scheduled", "cron", cfg.VacancyDigestCron, "to", cfg.VacancyDigestTo)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("server starting", "addr", server.Addr, "env", cfg.Environment, "home_tz", cfg.HomeTimezone.String())
	if err := serve(ctx, server, ln, logger); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// serve runs server on ln until ctx is done, then returns only after Shutdown has drained in-flight requests.
func serve(ctx context.Context, server *http.Server, ln net.Listener, logger *slog.Logger) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-shutdownDone
	return nil
}
