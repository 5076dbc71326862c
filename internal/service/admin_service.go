package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	filterDate      = "2006-01-02"
)

// AdminService 管理后台的订阅操作
type AdminService struct {
	subRepo  *repository.SubscriptionRepository
	userRepo *repository.UserRepository
	subs     *SubscriptionService
	logger   *slog.Logger
}

func NewAdminService(
	subRepo *repository.SubscriptionRepository,
	userRepo *repository.UserRepository,
	subs *SubscriptionService,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		subRepo:  subRepo,
		userRepo: userRepo,
		subs:     subs,
		logger:   logger,
	}
}

// ActivateByEmail 按邮箱为用户手动开通订阅，遵守同样的叠加和上限规则
func (s *AdminService) ActivateByEmail(ctx context.Context, email string, planID int64) (*dto.SubscriptionRecordItem, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	record, err := s.subs.Activate(ctx, user, planID)
	if err != nil {
		return nil, err
	}
	return toRecordItem(record), nil
}

// Cancel success -> canceled，取消后立即释放叠加名额
func (s *AdminService) Cancel(ctx context.Context, id int64) error {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	if !record.Status.CanTransitionTo(model.StatusCanceled) {
		return ErrInvalidTransition
	}

	ok, err := s.subRepo.UpdateStatus(ctx, id, record.Status, model.StatusCanceled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}

	s.logger.Info("subscription canceled", "payment_id", id, "user_id", record.UserID)
	return nil
}

func (s *AdminService) Delete(ctx context.Context, id int64) error {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := s.subRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("subscription record deleted",
		"payment_id", id, "user_id", record.UserID, "status", record.Status)
	return nil
}

// List 分页查询，from/to 为闭区间日期
func (s *AdminService) List(ctx context.Context, f *dto.SubscriptionFilter) ([]*dto.SubscriptionRecordItem, int64, error) {
	if f.Status != "" {
		if _, err := model.ParseStatus(f.Status); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}
	if f.MinAmount != nil && f.MaxAmount != nil && *f.MinAmount > *f.MaxAmount {
		return nil, 0, fmt.Errorf("%w: min_amount greater than max_amount", ErrInvalidFilter)
	}

	var from, to *time.Time
	if f.From != "" {
		t, err := time.ParseInLocation(filterDate, f.From, time.UTC)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: from: %v", ErrInvalidFilter, err)
		}
		from = &t
	}
	if f.To != "" {
		t, err := time.ParseInLocation(filterDate, f.To, time.UTC)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: to: %v", ErrInvalidFilter, err)
		}
		t = t.AddDate(0, 0, 1)
		to = &t
	}

	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)

	records, total, err := s.subRepo.List(ctx, f, from, to)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.SubscriptionRecordItem, 0, len(records))
	for _, r := range records {
		items = append(items, toRecordItem(r))
	}
	return items, total, nil
}

func (s *AdminService) getRecord(ctx context.Context, id int64) (*model.SubscriptionPayment, error) {
	record, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

func toRecordItem(r *model.SubscriptionPayment) *dto.SubscriptionRecordItem {
	item := &dto.SubscriptionRecordItem{
		ID:             r.ID,
		UserID:         r.UserID,
		PlanID:         r.PlanID,
		Amount:         r.Amount,
		Currency:       r.Currency,
		Status:         string(r.Status),
		StartDate:      r.StartDate.UTC().Format(dateTimeLayout),
		GatewayOrderID: r.GatewayOrderID,
		CreatedAt:      r.CreatedAt.UTC().Format(dateTimeLayout),
	}
	if r.EndDate != nil {
		item.EndDate = r.EndDate.UTC().Format(dateTimeLayout)
	}
	if r.GatewayPaymentID != nil {
		item.GatewayPaymentID = *r.GatewayPaymentID
	}
	if r.User != nil {
		item.Username = r.User.Username
		item.Email = r.User.Email
	}
	if r.Plan != nil {
		item.PlanTitle = r.Plan.Title
	}
	return item
}
