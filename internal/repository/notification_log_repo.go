package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
)

type NotificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Claim 占用 (payment, kind, day) 的发送资格，已被占用时返回 false
func (r *NotificationLogRepository) Claim(ctx context.Context, paymentID int64, kind model.NotificationKind, day string) (bool, error) {
	entry := &model.NotificationLog{
		PaymentID: paymentID,
		Kind:      kind,
		Day:       day,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Release 发送失败时释放占用，允许同一天重跑时再次发送
func (r *NotificationLogRepository) Release(ctx context.Context, paymentID int64, kind model.NotificationKind, day string) error {
	return r.db.WithContext(ctx).
		Where("payment_id = ? AND kind = ? AND day = ?", paymentID, kind, day).
		Delete(&model.NotificationLog{}).Error
}
