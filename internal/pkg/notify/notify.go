// Package notify 是订阅核心调用的通知出口。调用方只负责投递，
// 发送失败由发送方记录日志，核心不重试。
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/queue"
)

type Dispatcher interface {
	SendSubscriptionConfirmation(ctx context.Context, email, name, planTitle string, amount int64, expiryDate time.Time) error
	SendExpiryReminder(ctx context.Context, email, name, planTitle string, expiryDate time.Time) error
	SendPostExpiryNotice(ctx context.Context, email, name, planTitle string) error
}

type pusher interface {
	Push(ctx context.Context, msg *queue.NotificationMessage) error
}

// QueueDispatcher 把通知写入 Redis 队列，由 worker 异步发送邮件
type QueueDispatcher struct {
	queue pusher
	now   func() time.Time
}

func NewQueueDispatcher(q *queue.Queue) *QueueDispatcher {
	return &QueueDispatcher{queue: q, now: time.Now}
}

func (d *QueueDispatcher) push(ctx context.Context, msg *queue.NotificationMessage) error {
	msg.EnqueuedAt = d.now().UTC()
	if err := d.queue.Push(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s notification: %w", msg.Kind, err)
	}
	return nil
}

func (d *QueueDispatcher) SendSubscriptionConfirmation(ctx context.Context, email, name, planTitle string, amount int64, expiryDate time.Time) error {
	return d.push(ctx, &queue.NotificationMessage{
		Kind:       queue.KindSubscriptionConfirmation,
		Email:      email,
		Name:       name,
		PlanTitle:  planTitle,
		Amount:     amount,
		ExpiryDate: expiryDate,
	})
}

func (d *QueueDispatcher) SendExpiryReminder(ctx context.Context, email, name, planTitle string, expiryDate time.Time) error {
	return d.push(ctx, &queue.NotificationMessage{
		Kind:       queue.KindExpiryReminder,
		Email:      email,
		Name:       name,
		PlanTitle:  planTitle,
		ExpiryDate: expiryDate,
	})
}

func (d *QueueDispatcher) SendPostExpiryNotice(ctx context.Context, email, name, planTitle string) error {
	return d.push(ctx, &queue.NotificationMessage{
		Kind:      queue.KindPostExpiryNotice,
		Email:     email,
		Name:      name,
		PlanTitle: planTitle,
	})
}
