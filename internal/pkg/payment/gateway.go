package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

// ErrGatewayUnavailable 网关请求失败或超时
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Order 网关侧订单
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
}

// Gateway 支付网关适配器。回调校验只依赖共享密钥，见 VerifySignature
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
	KeyID() string
}

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway 通过 Razorpay Orders API 创建订单
type RazorpayGateway struct {
	orders  orderCreator
	keyID   string
	timeout time.Duration
}

func NewRazorpayGateway(keyID, keySecret string, timeout time.Duration) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{
		orders:  client.Order,
		keyID:   keyID,
		timeout: timeout,
	}
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder 同步调用，不重试；SDK 不支持 context，超时由这里控制
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}

	ch := make(chan createResult, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		ch <- createResult{body: body, err: err}
	}()

	var res createResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
	case res = <-ch:
	}

	if res.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, res.err)
	}
	return parseOrder(res.body, receipt)
}

func parseOrder(body map[string]interface{}, receipt string) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: response without order id", ErrGatewayUnavailable)
	}

	order := &Order{ID: id, Receipt: receipt}
	switch v := body["amount"].(type) {
	case float64:
		order.Amount = int64(v)
	case int64:
		order.Amount = v
	case int:
		order.Amount = int64(v)
	}
	order.Currency, _ = body["currency"].(string)
	return order, nil
}
