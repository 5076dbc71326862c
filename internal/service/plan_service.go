package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
)

type PlanService struct {
	planRepo *repository.PlanRepository
}

func NewPlanService(planRepo *repository.PlanRepository) *PlanService {
	return &PlanService{planRepo: planRepo}
}

func (s *PlanService) List(ctx context.Context) ([]*dto.PlanInfo, error) {
	plans, err := s.planRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PlanInfo, 0, len(plans))
	for _, p := range plans {
		items = append(items, toPlanInfo(p))
	}
	return items, nil
}

func (s *PlanService) Create(ctx context.Context, req *dto.CreatePlanRequest) (*dto.PlanInfo, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || req.Price < 0 || req.DurationInDays <= 0 {
		return nil, ErrInvalidPlan
	}

	plan := &model.Plan{
		Title:          title,
		Price:          req.Price,
		DurationInDays: req.DurationInDays,
	}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return toPlanInfo(plan), nil
}

// Update 修改套餐只影响之后创建的订单，已有记录的金额和起止时间不变
func (s *PlanService) Update(ctx context.Context, id int64, req *dto.UpdatePlanRequest) (*dto.PlanInfo, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrInvalidPlan
		}
		fields["title"] = title
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, ErrInvalidPlan
		}
		fields["price"] = *req.Price
	}
	if req.DurationInDays != nil {
		if *req.DurationInDays <= 0 {
			return nil, ErrInvalidPlan
		}
		fields["duration_in_days"] = *req.DurationInDays
	}

	if len(fields) > 0 {
		if err := s.planRepo.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	plan, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPlanInfo(plan), nil
}

// Delete 软删除，历史订阅仍可解析到该套餐
func (s *PlanService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.planRepo.Delete(ctx, id)
}

func (s *PlanService) get(ctx context.Context, id int64) (*model.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}
