package initialize

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"rigfleet/app/controllers"
	"rigfleet/app/db"
	jwtutil "rigfleet/app/jwt"
	"rigfleet/app/middleware"
	"rigfleet/app/models"
	"rigfleet/app/presence"
	"rigfleet/app/repo"
	"rigfleet/app/services"
	"rigfleet/config"
	"rigfleet/global"
	"rigfleet/router"
)

type App struct {
	Cfg    *config.Config
	DB     *gorm.DB
	Router http.Handler

	Workers    *services.WorkerService
	Dispatcher *services.DispatcherService
	Selections *services.SelectionService
	Containers *services.ContainerService
	Overclocks *services.OverclockService
	Async      *services.AsyncService
	Scheduler  *services.SchedulerService
	Users      *services.UserService
	Presence   *presence.Tracker

	Snapshots *services.MemorySnapshotStore // nil khi dùng redis
}

func Build(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = *cfg
	SetLogLevel(cfg.LogLevel)

	// DB
	var gdb *gorm.DB
	switch cfg.DB.Driver {
	case "sqlite":
		gdb, err = db.ConnectSQLite(cfg.DB.Path)
	default:
		gdb, err = db.Connect(db.Config{Host: cfg.DB.Host, Port: cfg.DB.Port, User: cfg.DB.User, Password: cfg.DB.Pass, DBName: cfg.DB.Name})
	}
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Worker{},
		&models.WorkerTag{},
		&models.WorkerMessage{},
		&models.Command{},
		&models.OCProfile{},
		&models.Container{},
		&models.ContainerCell{},
		&models.Schedule{},
		&models.AsyncRequest{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Redis optional: không có addr thì snapshot/lease chạy in-memory
	// (single node).
	var snapshots services.SnapshotStore
	var leases services.LeaseStore
	var memSnapshots *services.MemorySnapshotStore
	if cfg.Redis.Addr != "" {
		global.Rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		snapshots = services.NewRedisSnapshotStore(global.Rdb)
		leases = services.NewRedisLeaseStore(global.Rdb)
	} else {
		memSnapshots = services.NewMemorySnapshotStore()
		snapshots = memSnapshots
		leases = services.NewMemoryLeaseStore()
	}

	// Repos
	userRepo := repo.NewUserRepository(gdb)
	workerRepo := repo.NewWorkerRepository(gdb)
	commandRepo := repo.NewCommandRepository(gdb)
	containerRepo := repo.NewContainerRepository(gdb)
	ocRepo := repo.NewOCProfileRepository(gdb)
	scheduleRepo := repo.NewScheduleRepository(gdb)
	asyncRepo := repo.NewAsyncRequestRepository(gdb)

	// Services
	userSvc := services.NewUserService(userRepo)
	workerSvc := services.NewWorkerService(workerRepo)
	containerSvc := services.NewContainerService(containerRepo)
	selectionSvc := services.NewSelectionService(workerRepo, snapshots, cfg.Selection.SnapshotTTL, cfg.Selection.MatchAll)
	overclockSvc := services.NewOverclockService(ocRepo, workerRepo)
	dispatcherSvc := services.NewDispatcherService(commandRepo, workerRepo, overclockSvc, nil, global.Logger)
	asyncSvc := services.NewAsyncService(asyncRepo, cfg.Async.TTL, cfg.Async.Workers, global.Logger)
	schedulerSvc := services.NewSchedulerService(
		scheduleRepo, selectionSvc, containerSvc, dispatcherSvc, overclockSvc, asyncSvc,
		leases, cfg.Scheduler.LeaseTTL, cfg.Scheduler.AsyncThreshold, global.Logger)

	if err := userSvc.EnsureAdmin("admin", "admin123"); err != nil {
		global.Logger.Warn().Err(err).Msg("admin bootstrap failed")
	}

	tracker := presence.NewTracker(2 * time.Minute)

	// Controllers
	signer := &jwtutil.Signer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, ExpMin: cfg.JWT.ExpMin}
	mw := &middleware.Auth{Signer: signer}
	ctrls := router.Controllers{
		HTTP:       controllers.NewHTTPController(),
		Auth:       controllers.NewAuthController(userSvc, signer),
		Workers:    controllers.NewWorkerController(workerSvc, dispatcherSvc, tracker, signer),
		Commands:   controllers.NewCommandController(dispatcherSvc, selectionSvc, asyncSvc),
		Containers: controllers.NewContainerController(containerSvc),
		Overclocks: controllers.NewOverclockController(overclockSvc, dispatcherSvc, selectionSvc),
		Schedules:  controllers.NewScheduleController(schedulerSvc),
		Async:      controllers.NewAsyncController(asyncSvc),
	}
	h := middleware.Logging(router.NewRouter(ctrls, mw))

	return &App{
		Cfg:        cfg,
		DB:         gdb,
		Router:     h,
		Workers:    workerSvc,
		Dispatcher: dispatcherSvc,
		Selections: selectionSvc,
		Containers: containerSvc,
		Overclocks: overclockSvc,
		Async:      asyncSvc,
		Scheduler:  schedulerSvc,
		Users:      userSvc,
		Presence:   tracker,
		Snapshots:  memSnapshots,
	}, nil
}
