package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
)

type ViewHistoryRepository struct {
	db *gorm.DB
}

func NewViewHistoryRepository(db *gorm.DB) *ViewHistoryRepository {
	return &ViewHistoryRepository{db: db}
}

// GetOrCreate 获取 (用户, 内容) 的浏览记录，不存在时创建 view_count=0 的记录。
// 并发的首次浏览由唯一索引去重，插入冲突时读取已存在的记录
func (r *ViewHistoryRepository) GetOrCreate(ctx context.Context, userID, contentID int64, contentType string) (*model.ViewHistory, error) {
	history := &model.ViewHistory{
		UserID:      userID,
		ContentID:   contentID,
		ContentType: contentType,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(history)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 1 {
		return history, nil
	}
	return r.Get(ctx, userID, contentID, contentType)
}

func (r *ViewHistoryRepository) Get(ctx context.Context, userID, contentID int64, contentType string) (*model.ViewHistory, error) {
	var history model.ViewHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND content_id = ? AND content_type = ?", userID, contentID, contentType).
		First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// IncrementIfBelow 原子地在 view_count < limit 时加一，返回是否加成功
func (r *ViewHistoryRepository) IncrementIfBelow(ctx context.Context, id int64, limit int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.ViewHistory{}).
		Where("id = ? AND view_count < ?", id, limit).
		Update("view_count", gorm.Expr("view_count + 1"))
	return result.RowsAffected == 1, result.Error
}
