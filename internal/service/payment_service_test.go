package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/payment"
	"github.com/tacss32/dalitmurasu-sub000/internal/testutil"
)

func verifyRequest(orderID, paymentID string) *dto.VerifyPaymentRequest {
	return &dto.VerifyPaymentRequest{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: payment.Sign(testSecret, orderID, paymentID),
	}
}

func flipLastChar(s string) string {
	b := []byte(s)
	if b[len(b)-1] == '0' {
		b[len(b)-1] = '1'
	} else {
		b[len(b)-1] = '0'
	}
	return string(b)
}

func TestPaymentService_VerifyPayment_Success(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 30)

	order, err := env.subs.CreateOrder(ctx, user.ID, plan.ID)
	require.NoError(t, err)

	resp, err := env.payments.VerifyPayment(ctx, user.ID, verifyRequest(order.OrderID, "pay_1"))
	require.NoError(t, err)

	assert.Equal(t, string(model.StatusSuccess), resp.Status)
	assert.Equal(t, order.StartDate, resp.StartDate)
	assert.Equal(t, order.EndDate, resp.EndDate)

	record, err := env.subRepo.GetByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, record.Status)
	require.NotNil(t, record.GatewayPaymentID)
	assert.Equal(t, "pay_1", *record.GatewayPaymentID)
	require.NotNil(t, record.EndDate)
	assert.True(t, testNow.AddDate(0, 0, 30).Equal(*record.EndDate))

	msgs := env.dispatcher.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "confirmation", msgs[0].kind)
	assert.Equal(t, user.Email, msgs[0].email)
	assert.Equal(t, plan.Title, msgs[0].planTitle)
	assert.Equal(t, int64(100), msgs[0].amount)
}

func TestPaymentService_VerifyPayment_Idempotent(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 30)

	order, err := env.subs.CreateOrder(ctx, user.ID, plan.ID)
	require.NoError(t, err)

	req := verifyRequest(order.OrderID, "pay_1")
	first, err := env.payments.VerifyPayment(ctx, user.ID, req)
	require.NoError(t, err)

	second, err := env.payments.VerifyPayment(ctx, user.ID, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, env.dispatcher.messages(), 1)
}

func TestPaymentService_VerifyPayment_SignatureMismatch(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 30)

	order, err := env.subs.CreateOrder(ctx, user.ID, plan.ID)
	require.NoError(t, err)

	req := verifyRequest(order.OrderID, "pay_1")
	req.Signature = flipLastChar(req.Signature)

	_, err = env.payments.VerifyPayment(ctx, user.ID, req)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	record, err := env.subRepo.GetByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, record.Status)
	assert.Nil(t, record.EndDate)
	require.NotNil(t, record.GatewaySignature)
	assert.Equal(t, req.Signature, *record.GatewaySignature)
	assert.Empty(t, env.dispatcher.messages())

	// failed 为终态，正确签名也不能再激活
	_, err = env.payments.VerifyPayment(ctx, user.ID, verifyRequest(order.OrderID, "pay_1"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPaymentService_VerifyPayment_OrderNotFound(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	_, err := env.payments.VerifyPayment(context.Background(), 1, verifyRequest("order_missing", "pay_1"))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPaymentService_VerifyPayment_LimitReachedLeavesPending(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 30)

	pending := testutil.TestPayment(t, env.db, user.ID, plan, testutil.WithOrderID("order_late"))
	testutil.TestPayment(t, env.db, user.ID, plan,
		testutil.WithActiveUntil(testNow.AddDate(0, 0, -5), testNow.AddDate(0, 0, 25)))
	testutil.TestPayment(t, env.db, user.ID, plan,
		testutil.WithActiveUntil(testNow.AddDate(0, 0, 25), testNow.AddDate(0, 0, 55)))

	_, err := env.payments.VerifyPayment(ctx, user.ID, verifyRequest("order_late", "pay_9"))
	assert.ErrorIs(t, err, ErrLimitReached)

	record, err := env.subRepo.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, record.Status)
}

func TestPaymentService_VerifyPayment_UsesFrozenStart(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 30)

	order, err := env.subs.CreateOrder(ctx, user.ID, plan.ID)
	require.NoError(t, err)

	// 回调晚到一天，开始时间仍按下单时确定的值
	env.payments.now = func() time.Time { return testNow.AddDate(0, 0, 1) }

	resp, err := env.payments.VerifyPayment(ctx, user.ID, verifyRequest(order.OrderID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, testNow.Format(time.RFC3339), resp.StartDate)
	assert.Equal(t, testNow.AddDate(0, 0, 30).Format(time.RFC3339), resp.EndDate)
}

func TestPaymentService_VerifyPayment_DeletedPlanStillResolves(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 7)

	order, err := env.subs.CreateOrder(ctx, user.ID, plan.ID)
	require.NoError(t, err)
	require.NoError(t, env.planRepo.Delete(ctx, plan.ID))

	resp, err := env.payments.VerifyPayment(ctx, user.ID, verifyRequest(order.OrderID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, 7).Format(time.RFC3339), resp.EndDate)
}

func TestPaymentService_VerifyPayment_RaceConflict(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 30)
	testutil.TestPayment(t, env.db, user.ID, plan, testutil.WithOrderID("order_busy"))

	env.payments.locker = newHeldLocker(t, userLockKey(user.ID))

	_, err := env.payments.VerifyPayment(ctx, user.ID, verifyRequest("order_busy", "pay_1"))
	assert.ErrorIs(t, err, ErrRaceConflict)
}

func TestPaymentService_VerifyPayment_PaymentIDMismatch(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 30)

	order, err := env.subs.CreateOrder(ctx, user.ID, plan.ID)
	require.NoError(t, err)

	// 签名按 pay_1 计算，回传的支付号被改动
	req := verifyRequest(order.OrderID, "pay_1")
	req.PaymentID = flipLastChar(req.PaymentID)

	_, err = env.payments.VerifyPayment(ctx, user.ID, req)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	record, err := env.subRepo.GetByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, record.Status)
	assert.Nil(t, record.EndDate)
	require.NotNil(t, record.GatewayPaymentID)
	assert.Equal(t, req.PaymentID, *record.GatewayPaymentID)
	assert.Empty(t, env.dispatcher.messages())
}

func TestPaymentService_VerifyPayment_ForeignOrder(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	owner := testutil.TestUser(t, env.db)
	other := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 30)

	order, err := env.subs.CreateOrder(ctx, owner.ID, plan.ID)
	require.NoError(t, err)

	t.Run("bad signature from another user", func(t *testing.T) {
		req := verifyRequest(order.OrderID, "pay_1")
		req.Signature = flipLastChar(req.Signature)

		_, err := env.payments.VerifyPayment(ctx, other.ID, req)
		assert.ErrorIs(t, err, ErrOrderNotFound)

		record, err := env.subRepo.GetByOrderID(ctx, order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, record.Status)
		assert.Nil(t, record.GatewaySignature)
	})

	t.Run("valid signature from another user", func(t *testing.T) {
		_, err := env.payments.VerifyPayment(ctx, other.ID, verifyRequest(order.OrderID, "pay_1"))
		assert.ErrorIs(t, err, ErrOrderNotFound)

		record, err := env.subRepo.GetByOrderID(ctx, order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, record.Status)
	})

	t.Run("owner still verifies", func(t *testing.T) {
		resp, err := env.payments.VerifyPayment(ctx, owner.ID, verifyRequest(order.OrderID, "pay_1"))
		require.NoError(t, err)
		assert.Equal(t, string(model.StatusSuccess), resp.Status)
	})

	t.Run("success is not disclosed to another user", func(t *testing.T) {
		_, err := env.payments.VerifyPayment(ctx, other.ID, verifyRequest(order.OrderID, "pay_1"))
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestPaymentService_VerifyPayment_CanceledOrder(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, 100, 30)
	testutil.TestPayment(t, env.db, user.ID, plan,
		testutil.WithOrderID("order_canceled"),
		testutil.WithActiveUntil(testNow, testNow.AddDate(0, 0, 30)),
		testutil.WithPaymentStatus(model.StatusCanceled))

	_, err := env.payments.VerifyPayment(ctx, user.ID, verifyRequest("order_canceled", "pay_1"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, env.dispatcher.messages())
}
