package razorpay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	razorpaysdk "github.com/razorpay/razorpay-go"
	"github.com/sethvargo/go-retry"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("payment gateway key id is required")
	errKeySecretRequired = errors.New("payment gateway key secret is required")
)

const baseBackoff = 200 * time.Millisecond

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Order is the gateway-side order a checkout pays against.
type Order struct {
	ID          string
	AmountPaise int64
	Currency    string
	Receipt     string
	Status      string
}

type CreateOrderInput struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Client wraps the Razorpay SDK with bounded retries.
type Client struct {
	orders     orderAPI
	keyID      string
	maxRetries uint64
	timeout    time.Duration
	logg       *logger.Logger
}

// NewClient initializes the SDK with the configured key pair.
func NewClient(ctx context.Context, cfg config.PaymentConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	secret := strings.TrimSpace(cfg.KeySecret)
	if secret == "" {
		return nil, errKeySecretRequired
	}
	if logg == nil {
		logg = logger.Nop()
	}

	api := razorpaysdk.NewClient(keyID, secret)
	if cfg.Timeout > 0 {
		api.SetTimeout(timeoutSeconds(cfg.Timeout))
	}

	logg.Info(ctx, "payment gateway client initialized")
	return newClient(api.Order, keyID, cfg, logg), nil
}

// timeoutSeconds converts d to the SDK's whole-second timeout. Zero means no
// timeout to the SDK, so anything under a second rounds up to one.
func timeoutSeconds(d time.Duration) int16 {
	secs := d / time.Second
	switch {
	case secs < 1:
		return 1
	case secs > math.MaxInt16:
		return math.MaxInt16
	}
	return int16(secs)
}

func newClient(orders orderAPI, keyID string, cfg config.PaymentConfig, logg *logger.Logger) *Client {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Client{
		orders:     orders,
		keyID:      keyID,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
		logg:       logg,
	}
}

// KeyID is the public key the storefront hands to the checkout widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder creates a gateway order, retrying transport failures with
// exponential backoff until MaxRetries is spent or ctx ends.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if input.AmountPaise <= 0 {
		return nil, fmt.Errorf("order amount must be positive")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "INR"
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload := map[string]interface{}{
		"amount":   input.AmountPaise,
		"currency": currency,
		"receipt":  input.Receipt,
	}
	if len(input.Notes) > 0 {
		notes := make(map[string]interface{}, len(input.Notes))
		for k, v := range input.Notes {
			notes[k] = v
		}
		payload["notes"] = notes
	}

	var out *Order
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(baseBackoff))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		body, err := c.orders.Create(payload, nil)
		if err != nil {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
				"attempt": attempt,
				"receipt": input.Receipt,
				"error":   err.Error(),
			}), "gateway order create failed")
			return retry.RetryableError(err)
		}
		order, err := decodeOrder(body)
		if err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	return out, nil
}

func decodeOrder(body map[string]interface{}) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("gateway order response missing id")
	}
	order := &Order{ID: id}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	order.Status, _ = body["status"].(string)
	switch amount := body["amount"].(type) {
	case float64:
		order.AmountPaise = int64(amount)
	case int64:
		order.AmountPaise = amount
	case int:
		order.AmountPaise = int64(amount)
	}
	return order, nil
}
