package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/database"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/email"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/logger"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/queue"
	"github.com/tacss32/dalitmurasu-sub000/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr := logger.New(cfg.Log.Level)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	logr.Info("redis connected")

	notifyQueue := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	mailer := email.NewService(&cfg.Email)
	processor := worker.NewProcessor(mailer, cfg.Payment.Currency, logr)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logr.Info("received shutdown signal")
		cancel()
	}()

	workers := cfg.Queue.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	logr.Info("worker started", "queue", cfg.Queue.NotificationQueue, "workers", workers)

	// 阻塞直到所有 worker 退出
	processor.Run(ctx, notifyQueue, workers, 5*time.Second)

	if err := rdb.Close(); err != nil {
		logr.Warn("close redis failed", "error", err)
	}
	logr.Info("worker shutdown complete")
}
