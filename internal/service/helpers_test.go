package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/lock"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/logger"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/payment"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
	"github.com/tacss32/dalitmurasu-sub000/internal/testutil"
)

const testSecret = "test_secret"

var testNow = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

type stubGateway struct {
	mu    sync.Mutex
	err   error
	n     int
	calls []int64
	keyID string
}

func (g *stubGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, amount)
	if g.err != nil {
		return nil, g.err
	}
	g.n++
	return &payment.Order{
		ID:       fmt.Sprintf("order_stub_%d", g.n),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}, nil
}

func (g *stubGateway) KeyID() string { return g.keyID }

type sentMessage struct {
	kind      string
	email     string
	name      string
	planTitle string
	amount    int64
	expiry    time.Time
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (d *recordingDispatcher) record(m sentMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m)
	return nil
}

func (d *recordingDispatcher) SendSubscriptionConfirmation(_ context.Context, email, name, planTitle string, amount int64, expiry time.Time) error {
	return d.record(sentMessage{kind: "confirmation", email: email, name: name, planTitle: planTitle, amount: amount, expiry: expiry})
}

func (d *recordingDispatcher) SendExpiryReminder(_ context.Context, email, name, planTitle string, expiry time.Time) error {
	return d.record(sentMessage{kind: "reminder", email: email, name: name, planTitle: planTitle, expiry: expiry})
}

func (d *recordingDispatcher) SendPostExpiryNotice(_ context.Context, email, name, planTitle string) error {
	return d.record(sentMessage{kind: "post_expiry", email: email, name: name, planTitle: planTitle})
}

func (d *recordingDispatcher) messages() []sentMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sentMessage(nil), d.sent...)
}

func testConfig() *config.Config {
	return &config.Config{
		Payment: config.PaymentConfig{
			KeyID:     "rzp_test_key",
			KeySecret: testSecret,
			Currency:  "INR",
		},
		Subscription: config.SubscriptionConfig{
			MaxActive:       2,
			PendingOrderTTL: 30 * time.Minute,
		},
		Paywall: config.PaywallConfig{DefaultPreviewWords: 150},
		Scheduler: config.SchedulerConfig{
			Timezone:     "UTC",
			ReminderDays: 3,
		},
	}
}

type testEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	gateway    *stubGateway
	dispatcher *recordingDispatcher
	locker     *lock.LocalLocker
	subRepo    *repository.SubscriptionRepository
	planRepo   *repository.PlanRepository
	userRepo   *repository.UserRepository
	subs       *SubscriptionService
	payments   *PaymentService
}

func setupEnv(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testConfig()
	log := logger.Discard()

	env := &testEnv{
		db:         db,
		cfg:        cfg,
		gateway:    &stubGateway{keyID: cfg.Payment.KeyID},
		dispatcher: &recordingDispatcher{},
		locker:     lock.NewLocalLocker(2 * time.Second),
		subRepo:    repository.NewSubscriptionRepository(db),
		planRepo:   repository.NewPlanRepository(db),
		userRepo:   repository.NewUserRepository(db),
	}

	env.subs = NewSubscriptionService(env.subRepo, env.planRepo, env.userRepo,
		env.gateway, env.locker, env.dispatcher, cfg, log)
	env.subs.now = func() time.Time { return testNow }

	env.payments = NewPaymentService(env.subRepo, env.planRepo, env.userRepo,
		env.subs, env.locker, cfg, log)
	env.payments.now = func() time.Time { return testNow }

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return env, cleanup
}

var errGatewayDown = errors.New("connection refused")

// newHeldLocker 返回一个 key 已被占用且不等待的锁
func newHeldLocker(t *testing.T, key string) *lock.LocalLocker {
	t.Helper()

	l := lock.NewLocalLocker(0)
	unlock, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Failed to hold lock: %v", err)
	}
	t.Cleanup(func() { _ = unlock(context.Background()) })
	return l
}
