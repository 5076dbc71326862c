package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/api/middleware"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/lock"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/logger"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/payment"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/response"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
	"github.com/tacss32/dalitmurasu-sub000/internal/service"
	"github.com/tacss32/dalitmurasu-sub000/internal/testutil"
)

const testSecret = "test_secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGateway struct {
	mu  sync.Mutex
	n   int
	err error
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.n++
	return &payment.Order{ID: fmt.Sprintf("order_fake_%d", g.n), Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type nopDispatcher struct{}

func (nopDispatcher) SendSubscriptionConfirmation(context.Context, string, string, string, int64, time.Time) error {
	return nil
}
func (nopDispatcher) SendExpiryReminder(context.Context, string, string, string, time.Time) error {
	return nil
}
func (nopDispatcher) SendPostExpiryNotice(context.Context, string, string, string) error { return nil }

type testContext struct {
	DB       *gorm.DB
	Gateway  *fakeGateway
	UserRepo *repository.UserRepository

	plans         *PlanHandler
	subscriptions *SubscriptionHandler
	contents      *ContentHandler
	admin         *AdminHandler
}

func setupHandlers(t *testing.T) (*testContext, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	log := logger.Discard()
	cfg := &config.Config{
		Payment: config.PaymentConfig{KeyID: "rzp_test_key", KeySecret: testSecret, Currency: "INR"},
		Subscription: config.SubscriptionConfig{
			MaxActive:       2,
			PendingOrderTTL: 30 * time.Minute,
		},
		Paywall: config.PaywallConfig{DefaultPreviewWords: 150},
	}

	subRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	userRepo := repository.NewUserRepository(db)
	contentRepo := repository.NewContentRepository(db)
	viewRepo := repository.NewViewHistoryRepository(db)

	gateway := &fakeGateway{}
	locker := lock.NewLocalLocker(2 * time.Second)

	subs := service.NewSubscriptionService(subRepo, planRepo, userRepo, gateway, locker, nopDispatcher{}, cfg, log)
	payments := service.NewPaymentService(subRepo, planRepo, userRepo, subs, locker, cfg, log)
	paywall := service.NewPaywallService(contentRepo, viewRepo, subs, cfg.Paywall.DefaultPreviewWords, log)
	admin := service.NewAdminService(subRepo, userRepo, subs, log)

	ctx := &testContext{
		DB:            db,
		Gateway:       gateway,
		UserRepo:      userRepo,
		plans:         NewPlanHandler(service.NewPlanService(planRepo)),
		subscriptions: NewSubscriptionHandler(subs, payments),
		contents:      NewContentHandler(paywall),
		admin:         NewAdminHandler(admin),
	}

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return ctx, cleanup
}

// mockAuth userID 为 0 时视为匿名请求
func mockAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	}
}

// router 以 userID 身份构造路由，路由表与线上一致
func (tc *testContext) router(userID int64) *gin.Engine {
	r := gin.New()
	r.Use(mockAuth(userID))

	r.GET("/api/v1/plans", tc.plans.List)
	r.GET("/api/v1/contents/:id", tc.contents.Get)
	r.POST("/api/v1/subscriptions/orders", tc.subscriptions.CreateOrder)
	r.POST("/api/v1/subscriptions/verify", tc.subscriptions.Verify)
	r.GET("/api/v1/subscriptions/me", tc.subscriptions.Me)

	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AdminOnly(tc.UserRepo))
	{
		admin.POST("/plans", tc.plans.Create)
		admin.PUT("/plans/:id", tc.plans.Update)
		admin.DELETE("/plans/:id", tc.plans.Delete)
		admin.GET("/subscriptions", tc.admin.List)
		admin.POST("/subscriptions/activate", tc.admin.Activate)
		admin.POST("/subscriptions/:id/cancel", tc.admin.Cancel)
		admin.DELETE("/subscriptions/:id", tc.admin.Delete)
	}
	return r
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// decodeData 把 data 字段解到具体类型
func decodeData(t *testing.T, resp response.Response, out interface{}) {
	t.Helper()

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
