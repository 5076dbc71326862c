package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, payment *model.SubscriptionPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id int64) (*model.SubscriptionPayment, error) {
	var payment model.SubscriptionPayment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *SubscriptionRepository) GetByOrderID(ctx context.Context, orderID string) (*model.SubscriptionPayment, error) {
	var payment model.SubscriptionPayment
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *SubscriptionRepository) activeQuery(ctx context.Context, userID int64, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.SubscriptionPayment{}).
		Where("user_id = ? AND status = ? AND end_date > ?", userID, model.StatusSuccess, now.UTC())
}

// CountActive 统计用户当前有效的订阅数
func (r *SubscriptionRepository) CountActive(ctx context.Context, userID int64, now time.Time) (int64, error) {
	var count int64
	err := r.activeQuery(ctx, userID, now).Count(&count).Error
	return count, err
}

// LatestActive 返回到期时间最晚的有效订阅，没有时返回 nil
func (r *SubscriptionRepository) LatestActive(ctx context.Context, userID int64, now time.Time) (*model.SubscriptionPayment, error) {
	var payment model.SubscriptionPayment
	err := r.activeQuery(ctx, userID, now).Order("end_date DESC").First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// CountPendingSince 统计 since 之后创建、仍待支付的订单数
func (r *SubscriptionRepository) CountPendingSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SubscriptionPayment{}).
		Where("user_id = ? AND status = ? AND created_at > ?", userID, model.StatusPending, since.UTC()).
		Count(&count).Error
	return count, err
}

// LatestPendingForPlan 返回 since 之后创建、金额仍为 amount 的该套餐待支付订单，没有时返回 nil
func (r *SubscriptionRepository) LatestPendingForPlan(ctx context.Context, userID, planID, amount int64, since time.Time) (*model.SubscriptionPayment, error) {
	var payment model.SubscriptionPayment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND plan_id = ? AND amount = ? AND status = ? AND created_at > ?",
			userID, planID, amount, model.StatusPending, since.UTC()).
		Order("created_at DESC, id DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// MarkSuccess 仅当记录仍为 pending 时置为 success，返回是否更新成功
func (r *SubscriptionRepository) MarkSuccess(ctx context.Context, id int64, endDate time.Time, paymentID, signature string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.SubscriptionPayment{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":             model.StatusSuccess,
			"end_date":           endDate.UTC(),
			"gateway_payment_id": paymentID,
			"gateway_signature":  signature,
		})
	return result.RowsAffected == 1, result.Error
}

// MarkFailed 仅当记录仍为 pending 时置为 failed，保留回调数据用于审计
func (r *SubscriptionRepository) MarkFailed(ctx context.Context, id int64, paymentID, signature string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.SubscriptionPayment{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":             model.StatusFailed,
			"gateway_payment_id": paymentID,
			"gateway_signature":  signature,
		})
	return result.RowsAffected == 1, result.Error
}

// UpdateStatus 条件更新状态（from -> to）
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id int64, from, to model.SubscriptionStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.SubscriptionPayment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected == 1, result.Error
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.SubscriptionPayment{}, id).Error
}

func (r *SubscriptionRepository) endingBetween(ctx context.Context, from, to time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User").
		Preload("Plan", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("subscription_payments.status = ? AND subscription_payments.end_date >= ? AND subscription_payments.end_date <= ?",
			model.StatusSuccess, from.UTC(), to.UTC()).
		Order("subscription_payments.id ASC")
}

// ListEndingBetween 获取到期时间落在 [from, to] 内的成功订阅（含用户和套餐）
func (r *SubscriptionRepository) ListEndingBetween(ctx context.Context, from, to time.Time) ([]*model.SubscriptionPayment, error) {
	var payments []*model.SubscriptionPayment
	err := r.endingBetween(ctx, from, to).Find(&payments).Error
	return payments, err
}

// ListLastEndingBetween 同 ListEndingBetween，但排除用户还有更晚到期的成功订阅（已叠加续期）的记录
func (r *SubscriptionRepository) ListLastEndingBetween(ctx context.Context, from, to time.Time) ([]*model.SubscriptionPayment, error) {
	var payments []*model.SubscriptionPayment
	err := r.endingBetween(ctx, from, to).
		Where("NOT EXISTS (SELECT 1 FROM subscription_payments AS later"+
			" WHERE later.user_id = subscription_payments.user_id AND later.status = ?"+
			" AND later.end_date > subscription_payments.end_date)", model.StatusSuccess).
		Find(&payments).Error
	return payments, err
}

// List 管理后台分页查询
func (r *SubscriptionRepository) List(ctx context.Context, f *dto.SubscriptionFilter, from, to *time.Time) ([]*model.SubscriptionPayment, int64, error) {
	var payments []*model.SubscriptionPayment
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SubscriptionPayment{})

	if f.Status != "" {
		query = query.Where("subscription_payments.status = ?", f.Status)
	}
	if f.MinAmount != nil {
		query = query.Where("subscription_payments.amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		query = query.Where("subscription_payments.amount <= ?", *f.MaxAmount)
	}
	if from != nil {
		query = query.Where("subscription_payments.created_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("subscription_payments.created_at < ?", to.UTC())
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Joins("JOIN users ON users.id = subscription_payments.user_id").
			Where("users.username LIKE ? OR users.email LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.PageSize
	err := query.
		Preload("User").
		Preload("Plan", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("subscription_payments.created_at DESC").
		Offset(offset).Limit(f.PageSize).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}
