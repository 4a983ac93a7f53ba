package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"ullas/internal/audio"
	"ullas/internal/clock"
	"ullas/internal/config"
	"ullas/internal/database"
	"ullas/internal/game"
	"ullas/internal/handlers"
	"ullas/internal/kvstore"
	"ullas/internal/lang"
	"ullas/internal/messaging"
	"ullas/internal/metrics"
	"ullas/internal/narration"
	"ullas/internal/progress"
	"ullas/internal/questions"
	"ullas/internal/remote"
	"ullas/internal/reporting"
	"ullas/internal/repository"
	"ullas/internal/security"
	"ullas/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Database
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connection established", "type", cfg.DatabaseType)
	startup.CompleteStep(handlers.StepDatabase)

	// Redis is shared by the progress backend and the question cache
	var rdb *redis.Client
	if cfg.ProgressBackend == "redis" || cfg.QuestionCacheTTL > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
	}

	// Progress
	startup.SetCurrentStep(handlers.StepProgress)
	var kv kvstore.Store
	switch cfg.ProgressBackend {
	case "redis":
		kv = kvstore.NewRedis(rdb, "ullas:")
	case "memory":
		kv = kvstore.NewMemory()
	default:
		kv = kvstore.NewSQL(db)
	}
	store := progress.NewStore(kv, progress.WithMaxLevel(cfg.MaxLevel))
	userRepo := repository.NewUserRepository(db)

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, logger)
	if err != nil {
		return err
	}
	authService := service.NewAuthService(userRepo, store, cfg.JWTSecret, cfg.SessionDuration, logger, service.WithMailer(emailService))
	progressService := service.NewProgressService(store, userRepo, emailService, logger)
	backupService := service.NewBackupService(db, kv, logger)
	startup.CompleteStep(handlers.StepProgress)

	// Messaging
	var nc *messaging.NATS
	if cfg.NATSURL != "" {
		nc, err = messaging.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("NATS unavailable, continuing without it", "url", cfg.NATSURL, "error", err)
			nc = nil
		} else {
			defer nc.Close()
		}
	}

	// Questions
	startup.SetCurrentStep(handlers.StepQuestions)
	var apiClient *remote.Client
	if cfg.RemoteEnabled() {
		apiClient, err = remote.New(ctx, remote.Config{
			BaseURL:      cfg.RemoteAPIURL,
			ClientID:     cfg.RemoteClientID,
			ClientSecret: cfg.RemoteClientSecret,
			TokenURL:     cfg.RemoteTokenURL,
		}, logger)
		if err != nil {
			return err
		}
	}

	var source game.QuestionSource
	if cfg.QuestionSource == "remote" {
		source = questions.Observe(questions.NewRemote(apiClient), "remote", m)
	} else {
		local, err := questions.NewLocal(cfg.QuestionBankPath)
		if err != nil {
			return err
		}
		source = questions.Observe(local, "local", m)
	}
	if cfg.QuestionCacheTTL > 0 {
		source = questions.NewCached(source, rdb, cfg.QuestionCacheTTL, logger)
	}
	startup.CompleteStep(handlers.StepQuestions)

	// Narration
	startup.SetCurrentStep(handlers.StepNarration)
	var player narration.Player = narration.SilentPlayer{}
	var tts *audio.TTSService
	if cfg.NarrationBackend == "google" {
		opts := []audio.Option{}
		if nc != nil {
			opts = append(opts, audio.WithPublisher(nc))
		}
		tts = audio.NewTTSService(filepath.Join(cfg.StaticFilesPath, "audio"), logger, opts...)
		player = tts
	}
	voices := narration.NewRegistry(player, kv, logger,
		narration.WithLogger(logger),
		narration.WithMetrics(m),
	)
	defer voices.StopAll()
	startup.CompleteStep(handlers.StepNarration)

	// Attempt reporting
	startup.SetCurrentStep(handlers.StepReporting)
	deps := game.Deps{
		Source:   source,
		Progress: progressService,
		Narrators: func(userID int64, l lang.Language) game.Narrator {
			return voices.For(userID).Voice(l)
		},
		Clock:   clock.System(),
		Logger:  logger,
		Metrics: m,
	}
	if cfg.AttemptReporting {
		var sinks []reporting.Sink
		if apiClient != nil {
			sinks = append(sinks, reporting.NewHTTPSink(apiClient))
		}
		if nc != nil {
			sinks = append(sinks, reporting.NewNATSSink(nc))
		}
		if len(sinks) == 0 {
			logger.Warn("attempt reporting enabled but no sink is configured")
		} else {
			reporter := reporting.NewAsync(cfg.AttemptQueueSize, logger, sinks, reporting.WithMetrics(m))
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := reporter.Close(closeCtx); err != nil {
					logger.Warn("attempt reporter did not drain", "error", err)
				}
			}()
			deps.Reporter = reporter
		}
	}
	startup.CompleteStep(handlers.StepReporting)

	gameCfg := game.Config{
		Dwell:            cfg.DwellTime,
		PointsPerCorrect: cfg.PointsPerCorrect,
		MaxLevel:         cfg.MaxLevel,
		PersistTimeout:   5 * time.Second,
	}
	manager := game.NewManager(gameCfg, deps, game.WithIdleLimit(cfg.SessionIdleLimit))
	defer manager.Close()

	// HTTP
	limiter := security.NewRateLimiter(10, time.Minute)
	mux := http.NewServeMux()
	handlers.Router{
		Middleware: handlers.NewMiddleware(authService, limiter, logger),
		Auth:       handlers.NewAuthHandler(authService, manager, voices),
		Games:      handlers.NewGameHandler(manager, logger),
		Progress:   handlers.NewProgressHandler(progressService),
		Voice:      handlers.NewVoiceHandler(voices),
		Admin:      handlers.NewAdminHandler(userRepo, store, manager, backupService, logger),
		Startup:    startup,
	}.Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handlers.Logging(logger.With("component", "http"), mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background maintenance
	go manager.Run(ctx, time.Minute)
	go limiter.Run(ctx, 5*time.Minute)
	go cleanupExpiredSessions(ctx, authService, logger)
	if tts != nil {
		go pruneAudio(ctx, tts, logger)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	startup.CompleteStep(handlers.StepServer)
	startup.MarkReady()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	manager.Close()
	progressService.Wait()
	return nil
}

// cleanupExpiredSessions periodically removes expired login sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, logger *slog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authService.CleanupExpiredSessions(ctx); err != nil {
				logger.Error("error cleaning up expired sessions", "error", err)
			}
		}
	}
}

// pruneAudio drops narration clips nobody has requested for a month
func pruneAudio(ctx context.Context, tts *audio.TTSService, logger *slog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tts.Prune(30 * 24 * time.Hour)
			if err != nil {
				logger.Warn("audio prune failed", "error", err)
			} else if n > 0 {
				logger.Info("pruned narration audio", "files", n)
			}
		}
	}
}
