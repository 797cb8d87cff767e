package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"homestay/internal/api"
	"homestay/internal/availability"
	"homestay/internal/cache"
	"homestay/internal/config"
	"homestay/internal/database"
	"homestay/internal/metrics"
	"homestay/internal/model"
	"homestay/internal/notify"
	"homestay/internal/service"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("HOMESTAY_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg)

	if err := run(cfg, &logger); err != nil {
		logger.Fatal().Err(err).Msg("homestay failed")
	}
	logger.Info().Msg("homestay stopped")
}

// run returns instead of exiting so deferred cleanup always happens.
func run(cfg *config.Config, logger *zerolog.Logger) error {
	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("invalid booking policy: %w", err)
	}

	db, err := database.NewDB(cfg.Database.Path, policy.Zone(), logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedRooms(ctx, db, cfg.Rooms, logger); err != nil {
		return fmt.Errorf("create configured rooms: %w", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	occupancy := cache.NewOccupancyCache(rdb, cfg.CacheTTL(), logger)

	var notifier service.Notifier = notify.NopNotifier{}
	var tg *notify.TelegramNotifier
	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.ManagerChatIDs) > 0 {
		tg, err = notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ManagerChatIDs, policy.Zone(), logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier disabled")
			tg = nil
		} else {
			notifier = tg
		}
	}

	svc := service.NewBookingService(db, occupancy, notifier, policy, cfg.Booking.MaxNights, cfg.Booking.CalendarMaxDays, logger)

	if tg != nil && cfg.Telegram.DigestTime != "" {
		// validated by config.Load
		at, _ := availability.ParseClock(cfg.Telegram.DigestTime)
		go notify.NewDailyDigest(svc, tg, at).Start(ctx)
	}

	apiServer := api.NewHTTPServer(api.Options{
		Port:           cfg.HTTP.Port,
		APIKey:         cfg.HTTP.APIKey,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	}, svc, logger)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	if cfg.Backup.Enabled {
		go startBackupLoop(ctx, db, cfg, logger)
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	logger.Info().
		Dur("buffer", policy.Buffer).
		Str("check_in", policy.CheckIn.String()).
		Str("check_out", policy.CheckOut.String()).
		Str("timezone", policy.Zone().String()).
		Msg("homestay started")

	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("API server: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Logging.Format == "json" {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func seedRooms(ctx context.Context, db *database.DB, rooms []config.RoomConfig, logger *zerolog.Logger) error {
	for _, rc := range rooms {
		room := &model.Room{Name: rc.Name, Description: rc.Description, IsActive: true}
		err := db.CreateRoom(ctx, room)
		if errors.Is(err, database.ErrDuplicateRoom) {
			continue
		}
		if err != nil {
			return fmt.Errorf("room %q: %w", rc.Name, err)
		}
		logger.Info().Int64("room_id", room.ID).Str("name", room.Name).Msg("room created")
	}
	return nil
}

func startBackupLoop(ctx context.Context, db *database.DB, cfg *config.Config, logger *zerolog.Logger) {
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = "backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = 14
	}

	if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
	retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour

	select {
	case <-time.After(1 * time.Minute):
		runBackupTask(ctx, db, cfg.Backup.Path, retention, logger)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runBackupTask(ctx, db, cfg.Backup.Path, retention, logger)
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(ctx context.Context, db *database.DB, dir string, retention time.Duration, logger *zerolog.Logger) {
	dest := filepath.Join(dir, fmt.Sprintf("homestay_%s.db", time.Now().Format("20060102_150405")))

	logger.Info().Str("path", dest).Msg("starting database backup")
	if err := db.Backup(ctx, dest); err != nil {
		logger.Error().Err(err).Msg("backup failed")
	} else {
		logger.Info().Msg("backup completed successfully")
	}

	deleted, err := db.CleanupBackups(dir, retention)
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, "health", port, mux, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, "metrics", port, mux, logger)
}

func serve(ctx context.Context, name string, port int, h http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
