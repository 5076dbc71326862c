package service

import "errors"

var (
	ErrLimitReached       = errors.New("有效订阅数量已达上限")
	ErrPendingOrder       = errors.New("存在未完成支付的订单，请完成支付或稍后重试")
	ErrPlanNotFound       = errors.New("套餐不存在")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrOrderNotFound      = errors.New("订单不存在")
	ErrSignatureMismatch  = errors.New("支付签名校验失败")
	ErrGatewayUnavailable = errors.New("支付网关暂不可用")
	ErrRaceConflict       = errors.New("该用户有订阅请求正在处理，请稍后重试")
	ErrContentNotFound    = errors.New("内容不存在")
	ErrRecordNotFound     = errors.New("订阅记录不存在")
	ErrInvalidTransition  = errors.New("订单状态不允许此操作")
	ErrInvalidPlan        = errors.New("套餐参数无效")
	ErrInvalidFilter      = errors.New("筛选条件无效")
)
