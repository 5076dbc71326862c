package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/api"
	"github.com/tacss32/dalitmurasu-sub000/internal/api/handler"
	"github.com/tacss32/dalitmurasu-sub000/internal/database"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/lock"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/logger"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/notify"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/payment"
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

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	logr.Info("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	logr.Info("redis connected")

	// 用户锁、支付网关、通知队列
	locker := lock.NewRedisLocker(rdb, cfg.Subscription.LockTTL, cfg.Subscription.LockWait)
	gateway := payment.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.RequestTimeout)
	notifyQueue := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	dispatcher := notify.NewQueueDispatcher(notifyQueue)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	contentRepo := repository.NewContentRepository(db)
	viewRepo := repository.NewViewHistoryRepository(db)

	// 初始化 Service
	subscriptionService := service.NewSubscriptionService(subRepo, planRepo, userRepo, gateway, locker, dispatcher, cfg, logr)
	paymentService := service.NewPaymentService(subRepo, planRepo, userRepo, subscriptionService, locker, cfg, logr)
	paywallService := service.NewPaywallService(contentRepo, viewRepo, subscriptionService, cfg.Paywall.DefaultPreviewWords, logr)
	planService := service.NewPlanService(planRepo)
	adminService := service.NewAdminService(subRepo, userRepo, subscriptionService, logr)

	// 初始化 Handler
	planHandler := handler.NewPlanHandler(planService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, paymentService)
	contentHandler := handler.NewContentHandler(paywallService)
	adminHandler := handler.NewAdminHandler(adminService)

	// 初始化 Router
	router := api.NewRouter(
		planHandler,
		subscriptionHandler,
		contentHandler,
		adminHandler,
		userRepo,
		cfg,
		logr,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logr.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server shutdown failed", "error", err)
	}
	if err := rdb.Close(); err != nil {
		logr.Warn("close redis failed", "error", err)
	}
	logr.Info("server shutdown complete")
}
