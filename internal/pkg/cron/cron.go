package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/lock"
	"github.com/tacss32/dalitmurasu-sub000/internal/service"
)

const (
	DefaultSpec  = "15 12 * * *"
	sweepLockKey = "scheduler:expiry-sweep"
	runTimeout   = 10 * time.Minute
)

// Sweeper 到期提醒和到期通知的执行者
type Sweeper interface {
	Sweep(ctx context.Context, day time.Time) (service.SweepResult, service.SweepResult, error)
}

// Service 定时执行到期扫描。多实例部署时通过分布式锁保证同一时刻只有一个实例在扫描
type Service struct {
	cron    *cron.Cron
	sweeper Sweeper
	locker  lock.Locker
	spec    string
	loc     *time.Location
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(sweeper Sweeper, locker lock.Locker, cfg config.SchedulerConfig, logger *slog.Logger) *Service {
	spec := cfg.Spec
	if spec == "" {
		spec = DefaultSpec
	}
	loc := cfg.Location()

	return &Service{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		locker:  locker,
		spec:    spec,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Start 注册任务并启动调度
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("invalid scheduler spec %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("expiry scheduler started", "spec", s.spec, "timezone", s.loc.String())
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("expiry scheduler stopped")
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.RunNow(ctx, s.now()); err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			s.logger.Info("expiry sweep skipped, another instance holds the lock")
			return
		}
		s.logger.Error("expiry sweep failed", "error", err)
	}
}

// RunNow 立即对 day 执行一次扫描
func (s *Service) RunNow(ctx context.Context, day time.Time) error {
	unlock, err := s.locker.Lock(ctx, sweepLockKey)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release sweep lock failed", "error", err)
		}
	}()

	start := time.Now()
	reminders, notices, err := s.sweeper.Sweep(ctx, day.In(s.loc))
	if err != nil {
		return err
	}

	s.logger.Info("expiry sweep completed",
		"day", day.In(s.loc).Format("2006-01-02"),
		"reminders_sent", reminders.Sent,
		"notices_sent", notices.Sent,
		"failed", reminders.Failed+notices.Failed,
		"elapsed", time.Since(start))
	return nil
}
