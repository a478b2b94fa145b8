package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	approvalhandler "kehila/internal/approval/handler"
	approvalmetrics "kehila/internal/approval/metrics"
	"kehila/internal/approval/renderer"
	approvalservice "kehila/internal/approval/service"
	areahandler "kehila/internal/area/handler"
	areaservice "kehila/internal/area/service"
	areastore "kehila/internal/area/store"
	"kehila/internal/auth"
	"kehila/internal/notify"
	"kehila/internal/platform/config"
	"kehila/internal/platform/httpserver"
	"kehila/internal/platform/kafka"
	"kehila/internal/platform/logger"
	"kehila/internal/platform/metrics"
	"kehila/internal/platform/postgres"
	"kehila/internal/platform/redis"
	"kehila/internal/storage"
	"kehila/internal/storage/cloudinary"
	httptransport "kehila/internal/transport/http"
	volhandler "kehila/internal/volunteer/handler"
	volservice "kehila/internal/volunteer/service"
	volstore "kehila/internal/volunteer/store/volunteer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	} else {
		log.Warn("DATABASE_DSN not set, using in-memory stores")
	}

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
	}

	objects, err := objectStore(cfg.Storage, log)
	if err != nil {
		return err
	}

	var volunteers volunteerStore
	var areas areastore.Store
	if db != nil {
		volunteers = volstore.NewPostgres(db)
		areas = areastore.NewPostgres(db)
	} else {
		volunteers = volstore.NewMemoryStore()
		areas = areastore.NewMemoryStore()
	}
	if rdb != nil {
		areas = areastore.NewCached(areas, rdb.Client, config.AreaCacheTTL, log)
	}

	var render approvalservice.Renderer
	if cfg.Renderer.SidecarURL != "" {
		render = renderer.NewHTTP(cfg.Renderer.SidecarURL, cfg.Renderer.Timeout)
	} else {
		render = renderer.NewExec(cfg.Renderer.ScriptPath, cfg.Renderer.TemplatePath, cfg.Renderer.WorkDir, cfg.Renderer.Timeout)
	}

	var dispatchers notify.Multi
	if cfg.Mailer.From != "" {
		dispatchers = append(dispatchers, notify.NewMailer(cfg.Mailer))
	} else {
		log.Warn("MAIL_FROM not set, approval emails disabled")
	}
	if producer != nil {
		dispatchers = append(dispatchers, notify.NewEventPublisher(producer))
	}

	httpMetrics := metrics.New()
	authSvc := auth.New(cfg.Auth)

	volunteerSvc := volservice.New(volunteers, areas, objects, volservice.WithLogger(log))
	areaSvc := areaservice.New(areas, log)
	approvalSvc := approvalservice.New(
		volunteers,
		areas,
		render,
		objects,
		dispatchers,
		approvalservice.WithLogger(log),
		approvalservice.WithMetrics(approvalmetrics.New()),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        httpMetrics,
		Validator:      authSvc,
		Auth:           auth.NewHandler(authSvc),
		Volunteers:     volhandler.New(volunteerSvc, log),
		Areas:          areahandler.New(areaSvc, log),
		Approvals:      approvalhandler.New(approvalSvc, log),
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// volunteerStore is the union of store methods the volunteer and approval
// services need, so main can swap postgres and memory implementations.
type volunteerStore interface {
	volservice.VolunteerStore
	approvalservice.VolunteerStore
}

func objectStore(cfg config.Storage, log *slog.Logger) (storage.ObjectStore, error) {
	if cfg.CloudinaryURL == "" {
		log.Warn("CLOUDINARY_URL not set, documents stored in memory")
		return storage.NewMemoryStore(), nil
	}
	return cloudinary.New(cfg.CloudinaryURL)
}
