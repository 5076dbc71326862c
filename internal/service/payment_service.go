package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/lock"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/payment"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
)

// PaymentService 处理支付网关回调
type PaymentService struct {
	subRepo  *repository.SubscriptionRepository
	planRepo *repository.PlanRepository
	userRepo *repository.UserRepository
	subs     *SubscriptionService
	locker   lock.Locker
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewPaymentService(
	subRepo *repository.SubscriptionRepository,
	planRepo *repository.PlanRepository,
	userRepo *repository.UserRepository,
	subs *SubscriptionService,
	locker lock.Locker,
	cfg *config.Config,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		subRepo:  subRepo,
		planRepo: planRepo,
		userRepo: userRepo,
		subs:     subs,
		locker:   locker,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// VerifyPayment 校验回调签名并激活订阅。对已成功的订单重复回调直接返回成功
// 订单不属于 userID 时按不存在处理，不改变订单状态
func (s *PaymentService) VerifyPayment(ctx context.Context, userID int64, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error) {
	record, err := s.subRepo.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if record.UserID != userID {
		s.logger.Warn("verify for foreign order rejected",
			"payment_id", record.ID, "user_id", userID, "order_id", req.OrderID)
		return nil, ErrOrderNotFound
	}

	if record.Status == model.StatusSuccess {
		return toVerifyResponse(record), nil
	}
	if record.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	if !payment.VerifySignature(s.cfg.Payment.KeySecret, req.OrderID, req.PaymentID, req.Signature) {
		return nil, s.reject(ctx, record, req)
	}

	var plan *model.Plan
	activated := false

	err = withUserLock(ctx, s.locker, s.logger, record.UserID, func() error {
		current, err := s.subRepo.GetByID(ctx, record.ID)
		if err != nil {
			return err
		}
		switch current.Status {
		case model.StatusSuccess:
			record = current
			return nil
		case model.StatusPending:
		default:
			return ErrInvalidTransition
		}

		active, err := s.subRepo.CountActive(ctx, current.UserID, s.now().UTC())
		if err != nil {
			return err
		}
		if active >= s.subs.maxActive() {
			// 保持 pending，由人工对账处理
			s.logger.Warn("verified payment exceeds active limit, left pending",
				"payment_id", current.ID, "user_id", current.UserID, "order_id", req.OrderID)
			return ErrLimitReached
		}

		plan, err = s.planRepo.GetByIDUnscoped(ctx, current.PlanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		end := plan.EndDate(current.StartDate)
		ok, err := s.subRepo.MarkSuccess(ctx, current.ID, end, req.PaymentID, req.Signature)
		if err != nil {
			return err
		}
		if !ok {
			reloaded, err := s.subRepo.GetByID(ctx, current.ID)
			if err != nil {
				return err
			}
			if reloaded.Status == model.StatusSuccess {
				record = reloaded
				return nil
			}
			return ErrInvalidTransition
		}

		current.Status = model.StatusSuccess
		current.EndDate = &end
		current.GatewayPaymentID = &req.PaymentID
		record = current
		activated = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if activated {
		s.logger.Info("subscription payment verified",
			"payment_id", record.ID, "user_id", record.UserID, "order_id", req.OrderID, "end_date", record.EndDate)

		user, err := s.userRepo.GetByID(ctx, record.UserID)
		if err != nil {
			s.logger.Warn("load user for confirmation failed", "user_id", record.UserID, "error", err)
		} else {
			s.subs.sendConfirmation(ctx, user, plan, record)
		}
	}

	return toVerifyResponse(record), nil
}

// reject 签名不匹配：记录置为 failed 并保留回调数据
func (s *PaymentService) reject(ctx context.Context, record *model.SubscriptionPayment, req *dto.VerifyPaymentRequest) error {
	ok, err := s.subRepo.MarkFailed(ctx, record.ID, req.PaymentID, req.Signature)
	if err != nil {
		return err
	}
	if ok {
		s.logger.Warn("payment signature mismatch",
			"payment_id", record.ID, "user_id", record.UserID, "order_id", req.OrderID)
	}
	return ErrSignatureMismatch
}

func toVerifyResponse(record *model.SubscriptionPayment) *dto.VerifyPaymentResponse {
	resp := &dto.VerifyPaymentResponse{
		PaymentID: record.ID,
		Status:    string(record.Status),
		StartDate: record.StartDate.UTC().Format(dateTimeLayout),
	}
	if record.EndDate != nil {
		resp.EndDate = record.EndDate.UTC().Format(dateTimeLayout)
	}
	return resp
}
