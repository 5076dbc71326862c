package dto

// PlanInfo 套餐信息
type PlanInfo struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Price          int64  `json:"price"`
	DurationInDays int    `json:"duration_in_days"`
}

// CreatePlanRequest 创建套餐
type CreatePlanRequest struct {
	Title          string `json:"title" binding:"required,max=200"`
	Price          int64  `json:"price" binding:"min=0"`
	DurationInDays int    `json:"duration_in_days" binding:"required,min=1"`
}

// UpdatePlanRequest 更新套餐，未提供的字段保持不变
type UpdatePlanRequest struct {
	Title          *string `json:"title,omitempty" binding:"omitempty,max=200"`
	Price          *int64  `json:"price,omitempty" binding:"omitempty,min=0"`
	DurationInDays *int    `json:"duration_in_days,omitempty" binding:"omitempty,min=1"`
}
