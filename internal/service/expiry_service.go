package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/notify"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
)

const dayKeyLayout = "2006-01-02"

// SweepResult 一次扫描的统计
type SweepResult struct {
	Matched int `json:"matched"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"` // 当天已发送过
	Failed  int `json:"failed"`
}

// ExpiryService 到期前提醒和到期后通知。同一记录同一类通知每天最多发送一次
type ExpiryService struct {
	subRepo      *repository.SubscriptionRepository
	logRepo      *repository.NotificationLogRepository
	dispatcher   notify.Dispatcher
	reminderDays int
	loc          *time.Location
	logger       *slog.Logger
}

func NewExpiryService(
	subRepo *repository.SubscriptionRepository,
	logRepo *repository.NotificationLogRepository,
	dispatcher notify.Dispatcher,
	cfg config.SchedulerConfig,
	logger *slog.Logger,
) *ExpiryService {
	days := cfg.ReminderDays
	if days <= 0 {
		days = 3
	}
	return &ExpiryService{
		subRepo:      subRepo,
		logRepo:      logRepo,
		dispatcher:   dispatcher,
		reminderDays: days,
		loc:          cfg.Location(),
		logger:       logger,
	}
}

// dayBounds 返回 day 所在自然日（调度时区）的 [00:00:00, 23:59:59.999999999]
func (s *ExpiryService) dayBounds(day time.Time) (time.Time, time.Time) {
	d := day.In(s.loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func (s *ExpiryService) dayKey(day time.Time) string {
	return day.In(s.loc).Format(dayKeyLayout)
}

// Candidates 返回 day 这天会被提醒和通知的记录，不发送
func (s *ExpiryService) Candidates(ctx context.Context, day time.Time) ([]*model.SubscriptionPayment, []*model.SubscriptionPayment, error) {
	reminders, err := s.reminderCandidates(ctx, day)
	if err != nil {
		return nil, nil, err
	}
	notices, err := s.noticeCandidates(ctx, day)
	if err != nil {
		return nil, nil, err
	}
	return reminders, notices, nil
}

// reminderCandidates 已叠加后续订阅的记录到期时访问不会中断，不提醒
func (s *ExpiryService) reminderCandidates(ctx context.Context, day time.Time) ([]*model.SubscriptionPayment, error) {
	from, to := s.dayBounds(day)
	return s.subRepo.ListLastEndingBetween(ctx, from.AddDate(0, 0, s.reminderDays), to.AddDate(0, 0, s.reminderDays))
}

func (s *ExpiryService) noticeCandidates(ctx context.Context, day time.Time) ([]*model.SubscriptionPayment, error) {
	from, to := s.dayBounds(day)
	return s.subRepo.ListEndingBetween(ctx, from, to)
}

// SendExpiryReminders 提醒在 day 之后第 reminderDays 天到期、且没有后续订阅的记录
func (s *ExpiryService) SendExpiryReminders(ctx context.Context, day time.Time) (SweepResult, error) {
	records, err := s.reminderCandidates(ctx, day)
	if err != nil {
		return SweepResult{}, err
	}

	return s.dispatch(ctx, records, model.NotificationExpiryReminder, s.dayKey(day), func(r *model.SubscriptionPayment) error {
		return s.dispatcher.SendExpiryReminder(ctx, r.User.Email, r.User.Username, planTitle(r), *r.EndDate)
	}), nil
}

// SendPostExpiryNotices 通知在 day 当天到期的订阅
func (s *ExpiryService) SendPostExpiryNotices(ctx context.Context, day time.Time) (SweepResult, error) {
	records, err := s.noticeCandidates(ctx, day)
	if err != nil {
		return SweepResult{}, err
	}

	return s.dispatch(ctx, records, model.NotificationPostExpiry, s.dayKey(day), func(r *model.SubscriptionPayment) error {
		return s.dispatcher.SendPostExpiryNotice(ctx, r.User.Email, r.User.Username, planTitle(r))
	}), nil
}

// Sweep 依次执行提醒和到期通知，单条失败不影响其余记录
func (s *ExpiryService) Sweep(ctx context.Context, day time.Time) (SweepResult, SweepResult, error) {
	reminders, err := s.SendExpiryReminders(ctx, day)
	if err != nil {
		return reminders, SweepResult{}, err
	}
	notices, err := s.SendPostExpiryNotices(ctx, day)
	if err != nil {
		return reminders, notices, err
	}

	s.logger.Info("expiry sweep finished",
		"day", s.dayKey(day),
		"reminders_matched", reminders.Matched, "reminders_sent", reminders.Sent,
		"notices_matched", notices.Matched, "notices_sent", notices.Sent,
		"failed", reminders.Failed+notices.Failed)
	return reminders, notices, nil
}

func (s *ExpiryService) dispatch(
	ctx context.Context,
	records []*model.SubscriptionPayment,
	kind model.NotificationKind,
	day string,
	send func(*model.SubscriptionPayment) error,
) SweepResult {
	result := SweepResult{Matched: len(records)}

	for _, r := range records {
		if r.User == nil || r.EndDate == nil {
			s.logger.Warn("skip notification for incomplete record", "payment_id", r.ID, "kind", kind)
			result.Failed++
			continue
		}

		claimed, err := s.logRepo.Claim(ctx, r.ID, kind, day)
		if err != nil {
			s.logger.Error("claim notification failed", "payment_id", r.ID, "kind", kind, "error", err)
			result.Failed++
			continue
		}
		if !claimed {
			result.Skipped++
			continue
		}

		if err := send(r); err != nil {
			s.logger.Error("send notification failed",
				"payment_id", r.ID, "user_id", r.UserID, "kind", kind, "error", err)
			result.Failed++
			if err := s.logRepo.Release(ctx, r.ID, kind, day); err != nil {
				s.logger.Error("release notification claim failed", "payment_id", r.ID, "kind", kind, "error", err)
			}
			continue
		}
		result.Sent++
	}

	return result
}

func planTitle(r *model.SubscriptionPayment) string {
	if r.Plan == nil {
		return ""
	}
	return r.Plan.Title
}
