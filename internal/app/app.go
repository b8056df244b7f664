package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/clients/redis"
	"github.com/focushive/buddy-service/internal/db"
	"github.com/focushive/buddy-service/internal/jobs"
	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/observability"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Queue    redis.MatchQueue
	Sweeper  *jobs.Sweeper

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	queue, err := redis.NewMatchQueue(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init match queue: %w", err)
	}

	tracing := tracingEnabled()
	var otelShutdown func(context.Context) error
	if tracing {
		otelShutdown = observability.InitOTel(context.Background(), log, observability.OtelConfig{
			ServiceName: "buddy-service",
			Environment: cfg.Environment,
			Version:     cfg.Version,
		})
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, queue)
	handlerset := wireHandlers(log, serviceset)
	router := wireRouter(log, handlerset, tracing)

	sweeper := jobs.NewSweeper(log, serviceset.Partnership, serviceset.Goal,
		cfg.SweepInterval, cfg.StagnantAfterDays)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Queue:        queue,
		Sweeper:      sweeper,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Sweeper != nil {
		a.Sweeper.Start(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func tracingEnabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("OTEL_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
