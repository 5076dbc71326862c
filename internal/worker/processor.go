package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/queue"
)

// Mailer 实际的邮件发送方，由 email.Service 实现
type Mailer interface {
	SendSubscriptionConfirmation(to, name, planTitle string, amount int64, currency string, expiry time.Time) error
	SendExpiryReminder(to, name, planTitle string, expiry time.Time) error
	SendPostExpiryNotice(to, name, planTitle string) error
}

// Processor 通知处理器
type Processor struct {
	mailer   Mailer
	currency string
	logger   *slog.Logger
}

func NewProcessor(mailer Mailer, currency string, logger *slog.Logger) *Processor {
	return &Processor{
		mailer:   mailer,
		currency: currency,
		logger:   logger,
	}
}

// Process 处理一条通知。发送失败不重试，只返回错误由调用方记录
func (p *Processor) Process(ctx context.Context, msg *queue.NotificationMessage) error {
	if msg.Email == "" {
		return fmt.Errorf("notification %s without recipient", msg.Kind)
	}

	var err error
	switch msg.Kind {
	case queue.KindSubscriptionConfirmation:
		err = p.mailer.SendSubscriptionConfirmation(msg.Email, msg.Name, msg.PlanTitle, msg.Amount, p.currency, msg.ExpiryDate)
	case queue.KindExpiryReminder:
		err = p.mailer.SendExpiryReminder(msg.Email, msg.Name, msg.PlanTitle, msg.ExpiryDate)
	case queue.KindPostExpiryNotice:
		err = p.mailer.SendPostExpiryNotice(msg.Email, msg.Name, msg.PlanTitle)
	default:
		return fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Kind, msg.Email, err)
	}

	p.logger.InfoContext(ctx, "notification sent", "kind", msg.Kind, "email", msg.Email)
	return nil
}

type popper interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.NotificationMessage, error)
}

// Run 启动 workers 个协程消费队列，ctx 取消后等待所有协程退出
func (p *Processor) Run(ctx context.Context, q popper, workers int, popTimeout time.Duration) {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					p.logger.Info("worker shutting down", "worker", workerID)
					return
				default:
				}

				msg, err := q.Pop(ctx, popTimeout)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					p.logger.Error("failed to pop notification", "worker", workerID, "error", err)
					continue
				}
				if msg == nil {
					continue // 超时，继续等待
				}

				if err := p.Process(ctx, msg); err != nil {
					p.logger.Error("notification failed", "worker", workerID, "kind", msg.Kind, "error", err)
				}
			}
		}(i)
	}
	wg.Wait()
}
