package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/lock"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/notify"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/payment"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
)

const (
	defaultMaxActive = 2
	dateTimeLayout   = time.RFC3339
)

type SubscriptionService struct {
	subRepo    *repository.SubscriptionRepository
	planRepo   *repository.PlanRepository
	userRepo   *repository.UserRepository
	gateway    payment.Gateway
	locker     lock.Locker
	dispatcher notify.Dispatcher
	cfg        *config.Config
	logger     *slog.Logger
	now        func() time.Time
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	planRepo *repository.PlanRepository,
	userRepo *repository.UserRepository,
	gateway payment.Gateway,
	locker lock.Locker,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
	logger *slog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:    subRepo,
		planRepo:   planRepo,
		userRepo:   userRepo,
		gateway:    gateway,
		locker:     locker,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *SubscriptionService) maxActive() int64 {
	if s.cfg.Subscription.MaxActive <= 0 {
		return defaultMaxActive
	}
	return int64(s.cfg.Subscription.MaxActive)
}

func userLockKey(userID int64) string {
	return fmt.Sprintf("subscription:user:%d", userID)
}

// withUserLock 在用户级互斥锁内执行 fn，拿不到锁时返回 ErrRaceConflict
func withUserLock(ctx context.Context, locker lock.Locker, logger *slog.Logger, userID int64, fn func() error) error {
	unlock, err := locker.Lock(ctx, userLockKey(userID))
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return ErrRaceConflict
		}
		return fmt.Errorf("acquire user lock: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release user lock failed", "user_id", userID, "error", err)
		}
	}()

	return fn()
}

// ComputeStackingWindow 新订阅从最晚到期的有效订阅结束时开始，没有有效订阅时从 now 开始
func (s *SubscriptionService) ComputeStackingWindow(ctx context.Context, userID int64, plan *model.Plan, now time.Time) (time.Time, time.Time, error) {
	start := now.UTC()

	latest, err := s.subRepo.LatestActive(ctx, userID, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if latest != nil && latest.EndDate.After(start) {
		start = latest.EndDate.UTC()
	}

	return start, plan.EndDate(start), nil
}

// checkCapacity 有效订阅加上未过期的待支付订单不能超过上限。
// 有效订阅已满返回 ErrLimitReached，名额被待支付订单占用时返回 ErrPendingOrder
func (s *SubscriptionService) checkCapacity(ctx context.Context, userID int64, now time.Time) error {
	active, err := s.subRepo.CountActive(ctx, userID, now)
	if err != nil {
		return err
	}
	if active >= s.maxActive() {
		return ErrLimitReached
	}

	var pending int64
	if ttl := s.cfg.Subscription.PendingOrderTTL; ttl > 0 {
		pending, err = s.subRepo.CountPendingSince(ctx, userID, now.Add(-ttl))
		if err != nil {
			return err
		}
	}

	if active+pending >= s.maxActive() {
		return ErrPendingOrder
	}
	return nil
}

// reusablePending 同一套餐仍在有效期内的待支付订单，直接交给客户端继续支付
func (s *SubscriptionService) reusablePending(ctx context.Context, userID int64, plan *model.Plan, now time.Time) (*model.SubscriptionPayment, error) {
	ttl := s.cfg.Subscription.PendingOrderTTL
	if ttl <= 0 {
		return nil, nil
	}
	return s.subRepo.LatestPendingForPlan(ctx, userID, plan.ID, plan.Price, now.Add(-ttl))
}

func (s *SubscriptionService) currency() string {
	if s.cfg.Payment.Currency == "" {
		return "INR"
	}
	return s.cfg.Payment.Currency
}

// CreateOrder 为用户开一笔订阅订单，订单开始时间在此刻确定，之后不再重算。
// 同一套餐已有未过期的待支付订单时返回该订单
func (s *SubscriptionService) CreateOrder(ctx context.Context, userID, planID int64) (*dto.CreateOrderResponse, error) {
	var resp *dto.CreateOrderResponse

	err := withUserLock(ctx, s.locker, s.logger, userID, func() error {
		now := s.now().UTC()

		capacityErr := s.checkCapacity(ctx, userID, now)
		if capacityErr != nil && !errors.Is(capacityErr, ErrPendingOrder) {
			return capacityErr
		}

		plan, err := s.planRepo.GetByID(ctx, planID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		existing, err := s.reusablePending(ctx, userID, plan, now)
		if err != nil {
			return err
		}
		if existing != nil {
			s.logger.Info("pending subscription order reused",
				"user_id", userID, "plan_id", plan.ID, "order_id", existing.GatewayOrderID)
			resp = s.toOrderResponse(existing, plan)
			return nil
		}
		if capacityErr != nil {
			return capacityErr
		}

		start, _, err := s.ComputeStackingWindow(ctx, userID, plan, now)
		if err != nil {
			return err
		}

		// Razorpay 的 receipt 最长 40 个字符
		receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		order, err := s.gateway.CreateOrder(ctx, plan.Price, s.currency(), receipt)
		if err != nil {
			s.logger.Error("gateway create order failed", "user_id", userID, "plan_id", planID, "error", err)
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}

		currency := order.Currency
		if currency == "" {
			currency = s.currency()
		}

		record := &model.SubscriptionPayment{
			UserID:         userID,
			PlanID:         plan.ID,
			Amount:         plan.Price,
			Currency:       currency,
			Status:         model.StatusPending,
			StartDate:      start,
			GatewayOrderID: order.ID,
		}
		if err := s.subRepo.Create(ctx, record); err != nil {
			return err
		}

		s.logger.Info("subscription order created",
			"user_id", userID, "plan_id", plan.ID, "order_id", order.ID, "start_date", start)

		resp = s.toOrderResponse(record, plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *SubscriptionService) toOrderResponse(record *model.SubscriptionPayment, plan *model.Plan) *dto.CreateOrderResponse {
	start := record.StartDate.UTC()
	return &dto.CreateOrderResponse{
		OrderID:   record.GatewayOrderID,
		Amount:    record.Amount,
		Currency:  record.Currency,
		KeyID:     s.gateway.KeyID(),
		Plan:      toPlanInfo(plan),
		StartDate: start.Format(dateTimeLayout),
		EndDate:   plan.EndDate(start).Format(dateTimeLayout),
	}
}

// GetSummary 有效订阅按 end_date 与当前时间惰性判断，过期记录不做修改
func (s *SubscriptionService) GetSummary(ctx context.Context, userID int64) (*dto.SubscriptionSummary, error) {
	now := s.now().UTC()

	count, err := s.subRepo.CountActive(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	summary := &dto.SubscriptionSummary{
		IsActive: count > 0,
		Count:    int(count),
	}
	if count == 0 {
		return summary, nil
	}

	latest, err := s.subRepo.LatestActive(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		summary.LatestExpiry = latest.EndDate.UTC().Format(dateTimeLayout)
	}
	return summary, nil
}

func (s *SubscriptionService) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	count, err := s.subRepo.CountActive(ctx, userID, s.now().UTC())
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Activate 管理员手动开通，不经过支付网关，直接生成成功记录
func (s *SubscriptionService) Activate(ctx context.Context, user *model.User, planID int64) (*model.SubscriptionPayment, error) {
	var record *model.SubscriptionPayment
	var plan *model.Plan

	err := withUserLock(ctx, s.locker, s.logger, user.ID, func() error {
		now := s.now().UTC()

		active, err := s.subRepo.CountActive(ctx, user.ID, now)
		if err != nil {
			return err
		}
		if active >= s.maxActive() {
			return ErrLimitReached
		}

		plan, err = s.planRepo.GetByID(ctx, planID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		start, end, err := s.ComputeStackingWindow(ctx, user.ID, plan, now)
		if err != nil {
			return err
		}

		record = &model.SubscriptionPayment{
			UserID:         user.ID,
			PlanID:         plan.ID,
			Amount:         plan.Price,
			Currency:       s.currency(),
			Status:         model.StatusSuccess,
			StartDate:      start,
			EndDate:        &end,
			GatewayOrderID: "manual_" + uuid.NewString(),
		}
		return s.subRepo.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription activated manually",
		"user_id", user.ID, "plan_id", plan.ID, "payment_id", record.ID, "end_date", record.EndDate)

	record.User = user
	record.Plan = plan
	s.sendConfirmation(ctx, user, plan, record)
	return record, nil
}

// sendConfirmation 通知失败只记录日志，不影响订阅状态
func (s *SubscriptionService) sendConfirmation(ctx context.Context, user *model.User, plan *model.Plan, record *model.SubscriptionPayment) {
	if s.dispatcher == nil || user == nil || record.EndDate == nil {
		return
	}

	title := ""
	if plan != nil {
		title = plan.Title
	}

	err := s.dispatcher.SendSubscriptionConfirmation(ctx, user.Email, user.Username, title, record.Amount, *record.EndDate)
	if err != nil {
		s.logger.Warn("send subscription confirmation failed",
			"payment_id", record.ID, "user_id", user.ID, "error", err)
	}
}

func toPlanInfo(plan *model.Plan) *dto.PlanInfo {
	return &dto.PlanInfo{
		ID:             plan.ID,
		Title:          plan.Title,
		Price:          plan.Price,
		DurationInDays: plan.DurationInDays,
	}
}
