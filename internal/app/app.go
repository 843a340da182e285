package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/config"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/controller"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/event"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/repository"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/service"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/configwatcher"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/database"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/monitoring"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/security"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client // events.driver=log 时为空

	services        *services
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	module     *repository.ModuleRepository
	progress   *repository.ProgressRepository
	evaluation *repository.EvaluationRepository
	attempt    *repository.AttemptRepository
}

type services struct {
	completion *service.CompletionService
	progress   *service.ProgressService
	evaluation *service.EvaluationService
	attempt    *service.AttemptService
}

type controllers struct {
	progress   *controller.ProgressController
	evaluation *controller.EvaluationController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		module:     repository.NewModuleRepository(db),
		progress:   repository.NewProgressRepository(db),
		evaluation: repository.NewEvaluationRepository(db),
		attempt:    repository.NewAttemptRepository(db),
	}
}

func (a *App) eventSink() event.Sink {
	if a.Config.Events.Driver == util.EventDriverRedis && a.Redis != nil {
		return event.NewRedisSink(a.Redis, a.Config.Events.Channel)
	}
	return event.NewLogSink()
}

func (a *App) initServices(repos *repositories, sink event.Sink) *services {
	cfg := a.Config
	policy := service.OrganizationPolicy{}

	s := &services{}
	s.completion = service.NewCompletionService(repos.progress, sink)
	s.progress = service.NewProgressService(a.DB, repos.module, repos.progress, s.completion, policy,
		cfg.Tracking.CompletionThresholdPercent)
	s.evaluation = service.NewEvaluationService(a.DB, repos.module, repos.evaluation, policy)
	s.attempt = service.NewAttemptService(a.DB, repos.module, repos.evaluation, repos.attempt, s.completion, policy,
		cfg.Evaluation.MaxNumberRetries)
	s.attempt.SetDefaultPassPercent(cfg.Evaluation.DefaultMinPassPercent)

	// 热更新只影响阈值、及格线与重试次数，连接类配置需要重启
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.progress.SetCompletionThreshold(newCfg.Tracking.CompletionThresholdPercent)
		s.attempt.SetMaxRetries(newCfg.Evaluation.MaxNumberRetries)
		s.attempt.SetDefaultPassPercent(newCfg.Evaluation.DefaultMinPassPercent)
	})
	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		progress:   controller.NewProgressController(s.progress),
		evaluation: controller.NewEvaluationController(s.evaluation, s.attempt),
		health:     controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine) {
	cfg := a.Config
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(cfg.Tracing.ServiceName))
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 在已打开的数据库（以及可选的 Redis）之上装配路由与服务，不做任何外部初始化
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		ctx:    ctx,
		cancel: cancel,
	}

	repos := a.initRepositories(db)
	a.services = a.initServices(repos, a.eventSink())
	ctrls := a.initControllers(a.services)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	a.setupMiddlewares(router)
	a.registerRoutes(router, ctrls)
	a.Router = router
	return a
}

// NewApp 初始化日志、数据库、Redis 与链路追踪后装配应用
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")
	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode)
	if err != nil {
		return nil, errors.Wrap(err, "initialize database")
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}, nil
	}

	var rdb *redis.Client
	if cfg.Events.Driver == util.EventDriverRedis {
		rdb, err = database.InitRedis(context.Background(), &cfg.Redis)
		if err != nil {
			return nil, errors.Wrap(err, "initialize redis")
		}
	}

	monitoring.Init()

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer(context.Background(), cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, errors.Wrap(err, "initialize tracing")
		}
	}

	a := New(cfg, db, rdb)
	a.tracer = tp
	return a, nil
}

func (a *App) watchConfig() {
	if !a.Config.Server.WatchConfig {
		return
	}
	dir := a.Config.Dir
	if dir == "" {
		dir = "configs"
	}
	go func() {
		if err := configwatcher.Watch(a.ctx, dir, a.applyConfig); err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.watchConfig()

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		a.Close()
		return errors.Wrap(err, "listen")
	case <-quit:
	}
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)
	a.Close()
	if err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	logger.Log.Info("Server exiting")
	return nil
}

// Close 停止后台协程并释放外部连接
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
