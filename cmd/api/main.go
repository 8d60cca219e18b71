package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"telephony-backoffice/internal/auth"
	"telephony-backoffice/internal/automation"
	"telephony-backoffice/internal/availability"
	"telephony-backoffice/internal/calendar"
	"telephony-backoffice/internal/callrouter"
	"telephony-backoffice/internal/calls"
	"telephony-backoffice/internal/config"
	"telephony-backoffice/internal/sms"
	"telephony-backoffice/internal/telephony"
	"telephony-backoffice/internal/templates"
	"telephony-backoffice/internal/users"
	"telephony-backoffice/internal/voicemail"
	"telephony-backoffice/internal/webhooks"
	"telephony-backoffice/pkg/logger"
	"telephony-backoffice/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN())
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Repositories
	userRepo := users.NewPostgresRepo(db)
	callRepo := calls.NewPostgresRepo(db)
	voicemailRepo := voicemail.NewPostgresRepo(db)
	messageRepo := sms.NewPostgresRepo(db)
	templateRepo := templates.NewPostgresRepo(db)
	automationRepo := automation.NewPostgresRepository(db)
	eventStore := calendar.NewPostgresStore(db)

	// Provider adapter: one client serves call control and messaging.
	telnyx := telephony.NewTelnyxClient(cfg.Telnyx)

	// Domain services
	checker := availability.NewChecker(userRepo, eventStore)
	recorder := voicemail.NewRecorder(telnyx, cfg.Greetings)
	callSvc := calls.NewService(callRepo)
	router := callrouter.New(telnyx, checker, recorder,
		cfg.Telnyx.CentralForwardNumber,
		cfg.Greetings.AssetBaseURL+"/unavailable-options.mp3")

	var calendarSync *calendar.SyncService
	if cfg.Calendar.FeedBaseURL != "" {
		calendarSync = calendar.NewSyncService(calendar.NewHTTPProvider(cfg.Calendar.FeedBaseURL), eventStore)
	} else {
		calendarSync = calendar.NewSyncService(nil, eventStore)
		log.Warn("calendar sync disabled: CALENDAR_FEED_BASE_URL not set")
	}

	engine := &automation.Engine{
		Repo:      automationRepo,
		Schedule:  automationRepo,
		Templates: templateRepo,
		Users:     userRepo,
		Messenger: telnyx,
		Messages:  messageRepo,
	}

	// Background loops: scheduled automations, deferred actions, and the
	// availability flip watcher.
	bgCtx := logger.With(rootCtx, log)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		(&automation.Scheduler{Engine: engine, Interval: cfg.Automation.SchedulerTick}).Run(bgCtx)
	}()
	go func() {
		defer wg.Done()
		(&automation.Dispatcher{
			Engine:   engine,
			Schedule: automationRepo,
			Repo:     automationRepo,
			Interval: cfg.Automation.DispatcherTick,
		}).Run(bgCtx)
	}()
	go func() {
		defer wg.Done()
		(&automation.AvailabilityWatcher{
			Engine:   engine,
			Users:    userRepo,
			Checker:  checker,
			Interval: cfg.Automation.SchedulerTick,
		}).Run(bgCtx)
	}()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	webhookHandler := &webhooks.Handler{
		Users:      userRepo,
		Calls:      callSvc,
		Router:     router,
		Voicemails: voicemailRepo,
		Messages:   messageRepo,
		Engine:     engine,
		Dedupe:     &webhooks.RedisDeduper{RDB: rdb},
		PublicKey:  cfg.Telnyx.WebhookSecret,
	}
	apiHandlers := httpHandlers(authManager, userRepo, checker, calendarSync, callSvc,
		voicemailRepo, messageRepo, automationRepo, templateRepo)

	registerRoutes(r, db, webhookHandler, apiHandlers, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	wg.Wait()
}
