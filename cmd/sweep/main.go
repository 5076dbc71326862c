package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/database"
	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/cron"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/lock"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/logger"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/notify"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/queue"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
	"github.com/tacss32/dalitmurasu-sub000/internal/service"
)

var (
	dryRun = flag.Bool("dry-run", true, "Only list matching subscriptions, don't send anything")
	date   = flag.String("date", "", "Day to sweep (YYYY-MM-DD, scheduler timezone). Defaults to today")
)

func main() {
	flag.Parse()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr := logger.New(cfg.Log.Level)
	loc := cfg.Scheduler.Location()

	day := time.Now().In(loc)
	if *date != "" {
		day, err = time.ParseInLocation("2006-01-02", *date, loc)
		if err != nil {
			log.Fatalf("Invalid -date %q: %v", *date, err)
		}
	}

	log.Printf("Starting expiry sweep for %s (%s), dry-run=%v", day.Format("2006-01-02"), loc, *dryRun)

	// 连接数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	defer rdb.Close()

	expiryService := service.NewExpiryService(
		repository.NewSubscriptionRepository(db),
		repository.NewNotificationLogRepository(db),
		notify.NewQueueDispatcher(queue.NewQueue(rdb, cfg.Queue.NotificationQueue)),
		cfg.Scheduler,
		logr,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if *dryRun {
		reminders, notices, err := expiryService.Candidates(ctx, day)
		if err != nil {
			log.Fatalf("Failed to list candidates: %v", err)
		}

		log.Println(strings.Repeat("=", 60))
		printRecords("Expiry reminders", reminders)
		printRecords("Post-expiry notices", notices)
		log.Println(strings.Repeat("=", 60))
		log.Println("DRY RUN MODE - nothing was sent. Run with -dry-run=false to send")
		return
	}

	locker := lock.NewRedisLocker(rdb, cfg.Scheduler.LockTTL, 0)
	scheduler := cron.NewService(expiryService, locker, cfg.Scheduler, logr)
	if err := scheduler.RunNow(ctx, day); err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			log.Fatalf("Another sweep is running, try again later")
		}
		log.Fatalf("Sweep failed: %v", err)
	}
	log.Println("Sweep completed")
}

func printRecords(title string, records []*model.SubscriptionPayment) {
	log.Printf("%s: %d", title, len(records))
	for _, r := range records {
		email := ""
		if r.User != nil {
			email = r.User.Email
		}
		end := ""
		if r.EndDate != nil {
			end = r.EndDate.UTC().Format(time.RFC3339)
		}
		log.Printf("  - payment %d user %d <%s> ends %s", r.ID, r.UserID, email, end)
	}
}
