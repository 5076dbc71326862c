package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/database"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/cron"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/lock"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/logger"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/notify"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/queue"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
	"github.com/tacss32/dalitmurasu-sub000/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr := logger.New(cfg.Log.Level)

	if !cfg.Scheduler.Enabled {
		logr.Info("expiry scheduler disabled, exiting")
		return
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}

	dispatcher := notify.NewQueueDispatcher(queue.NewQueue(rdb, cfg.Queue.NotificationQueue))
	expiryService := service.NewExpiryService(
		repository.NewSubscriptionRepository(db),
		repository.NewNotificationLogRepository(db),
		dispatcher,
		cfg.Scheduler,
		logr,
	)

	// 扫描锁只等一次，拿不到说明其他实例在跑
	locker := lock.NewRedisLocker(rdb, cfg.Scheduler.LockTTL, 0)
	scheduler := cron.NewService(expiryService, locker, cfg.Scheduler, logr)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logr.Info("received shutdown signal")

	scheduler.Stop()
	if err := rdb.Close(); err != nil {
		logr.Warn("close redis failed", "error", err)
	}
}
