// Package lock 提供按 key 串行化的互斥锁：多实例部署使用 Redis（redsync），
// 单实例或测试使用进程内实现。
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

// ErrNotObtained 在等待时间内未能拿到锁
var ErrNotObtained = errors.New("lock: not obtained")

// UnlockFunc 释放锁
type UnlockFunc func(ctx context.Context) error

type Locker interface {
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

const retryDelay = 100 * time.Millisecond

// RedisLocker 基于 redsync 的分布式锁
type RedisLocker struct {
	rs    *redsync.Redsync
	ttl   time.Duration
	tries int
}

// NewRedisLocker ttl 为锁的过期时间，wait 为拿不到锁时最多等待的时长
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		rs:    redsync.New(goredis.NewPool(client)),
		ttl:   ttl,
		tries: 1 + int(wait/retryDelay),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(retryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrNotObtained
		}
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			return fmt.Errorf("unlock %s: %w", key, err)
		}
		return nil
	}, nil
}

// LocalLocker 进程内的按 key 互斥锁
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		slots: make(map[string]chan struct{}),
		wait:  wait,
	}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	ch := l.slot(key)
	release := func(context.Context) error {
		<-ch
		return nil
	}

	select {
	case ch <- struct{}{}:
		return release, nil
	default:
	}

	if l.wait <= 0 {
		return nil, ErrNotObtained
	}

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return release, nil
	case <-timer.C:
		return nil, ErrNotObtained
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
