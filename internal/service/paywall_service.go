package service

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/preview"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
)

type subscriptionChecker interface {
	IsSubscribed(ctx context.Context, userID int64) (bool, error)
}

// PaywallService 决定请求者能否看到完整内容
type PaywallService struct {
	contentRepo  *repository.ContentRepository
	viewRepo     *repository.ViewHistoryRepository
	subs         subscriptionChecker
	defaultWords int
	logger       *slog.Logger
}

func NewPaywallService(
	contentRepo *repository.ContentRepository,
	viewRepo *repository.ViewHistoryRepository,
	subs subscriptionChecker,
	defaultWords int,
	logger *slog.Logger,
) *PaywallService {
	return &PaywallService{
		contentRepo:  contentRepo,
		viewRepo:     viewRepo,
		subs:         subs,
		defaultWords: defaultWords,
		logger:       logger,
	}
}

// Access requesterID 为 nil 表示匿名访问；previewWords <= 0 时使用默认预览长度
func (s *PaywallService) Access(ctx context.Context, contentID int64, requesterID *int64, previewWords int) (*dto.ContentAccess, error) {
	content, err := s.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}

	if previewWords <= 0 {
		previewWords = s.defaultWords
	}

	result := &dto.ContentAccess{
		ID:          content.ID,
		ContentType: content.ContentType,
		Title:       content.Title,
		ViewCount:   content.ViewCount,
	}

	if content.Visibility == model.VisibilityPublic {
		return s.grant(ctx, content, result)
	}

	if requesterID == nil {
		return s.deny(content, result, dto.SignalLoginRequired, previewWords), nil
	}

	subscribed, err := s.subs.IsSubscribed(ctx, *requesterID)
	if err != nil {
		return nil, err
	}
	if subscribed {
		return s.grant(ctx, content, result)
	}

	history, err := s.viewRepo.GetOrCreate(ctx, *requesterID, content.ID, content.ContentType)
	if err != nil {
		return nil, err
	}

	ok, err := s.viewRepo.IncrementIfBelow(ctx, history.ID, content.FreeViewLimit)
	if err != nil {
		return nil, err
	}

	remaining := 0
	if ok {
		if left := content.FreeViewLimit - history.ViewCount - 1; left > 0 {
			remaining = left
		}
		result.FreeViews = &remaining
		return s.grant(ctx, content, result)
	}

	result.FreeViews = &remaining
	return s.deny(content, result, dto.SignalSubscriptionRequired, previewWords), nil
}

func (s *PaywallService) grant(ctx context.Context, content *model.Content, result *dto.ContentAccess) (*dto.ContentAccess, error) {
	if err := s.contentRepo.IncrementViewCount(ctx, content.ID); err != nil {
		return nil, err
	}

	result.Full = true
	result.Body = content.Body
	result.ViewCount = content.ViewCount + 1
	return result, nil
}

func (s *PaywallService) deny(content *model.Content, result *dto.ContentAccess, signal string, words int) *dto.ContentAccess {
	result.Full = false
	result.Preview = preview.Truncate(content.Body, words)
	result.Signal = signal
	return result
}
