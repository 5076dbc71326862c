package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
)

// ContentRepository 内容只读访问，唯一的写操作是浏览数自增
type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) GetByID(ctx context.Context, id int64) (*model.Content, error) {
	var content model.Content
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&content).Error
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// IncrementViewCount 增加浏览数
func (r *ContentRepository) IncrementViewCount(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.Content{}).Where("id = ?", id).
		Update("view_count", gorm.Expr("view_count + 1")).Error
}
