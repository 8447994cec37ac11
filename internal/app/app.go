package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/clawbackhq/clawback-backend/internal/data/db"
	"github.com/clawbackhq/clawback-backend/internal/observability"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	SSEHub   *realtime.SSEHub
	cancel   context.CancelFunc
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
	cfg := LoadConfig()

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

	observability.Init(log)

	ssehub := realtime.NewSSEHub(log)

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(log, cfg, reposet, ssehub)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, serviceset, reposet, ssehub)
	router := wireRouter(log, handlerset)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		SSEHub:   ssehub,
	}, nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	if a.Services.Bus != nil {
		g.Go(func() error {
			return a.Services.Bus.StartForwarder(gctx, a.SSEHub.Broadcast)
		})
	}
	if a.Services.Worker != nil {
		g.Go(func() error {
			return a.Services.Worker.Start(gctx)
		})
	}
	go func() {
		if err := g.Wait(); err != nil && ctx.Err() == nil {
			a.Log.Error("Background service failed", "error", err)
		}
	}()

	if m := observability.Current(); m != nil {
		m.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		m.StartPostgresCollector(ctx, a.Log, a.DB)
		m.StartProgressCollector(ctx, a.Log, a.DB)
		if a.Cfg.RedisAddr != "" {
			m.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
		}
		m.StartSLOEvaluator(ctx, a.Log)
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
	if a.Services.Bus != nil {
		_ = a.Services.Bus.Close()
	}
	if a.Services.Temporal != nil {
		a.Services.Temporal.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
