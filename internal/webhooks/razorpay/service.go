package razorpaywebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

const (
	EventPaymentFailed   = "payment.failed"
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

type paymentRecorder interface {
	MarkFailedByGatewayOrder(ctx context.Context, gatewayOrderID, gatewayPaymentID, reason string) (bool, error)
	RecordCapture(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error)
}

// Event is the subset of the gateway webhook envelope the storefront reads.
type Event struct {
	Event     string       `json:"event"`
	Payload   EventPayload `json:"payload"`
	CreatedAt int64        `json:"created_at"`
}

type EventPayload struct {
	Payment *struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment"`
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	AmountPaise      int64  `json:"amount"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// FailureReason prefers the human readable description over the code.
func (p PaymentEntity) FailureReason() string {
	if d := strings.TrimSpace(p.ErrorDescription); d != "" {
		return d
	}
	if c := strings.TrimSpace(p.ErrorCode); c != "" {
		return c
	}
	return "gateway reported payment failure"
}

// ParseEvent decodes a raw webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook event")
	}
	if strings.TrimSpace(event.Event) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event type missing")
	}
	return &event, nil
}

type Service struct {
	payments paymentRecorder
	logg     *logger.Logger
}

func NewService(payments paymentRecorder, logg *logger.Logger) (*Service, error) {
	if payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{payments: payments, logg: logg}, nil
}

// HandleEvent applies a verified gateway event. A capture only pins the
// gateway payment id on the intent; orders are committed by the signed client
// callback.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}

	switch event.Event {
	case EventPaymentFailed:
		if event.Payload.Payment == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment entity missing")
		}
		entity := event.Payload.Payment.Entity
		if strings.TrimSpace(entity.OrderID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "gateway order id missing")
		}
		changed, err := s.payments.MarkFailedByGatewayOrder(ctx, entity.OrderID, entity.ID, entity.FailureReason())
		if err != nil {
			return err
		}
		ctx = s.logg.WithFields(ctx, map[string]any{
			"gateway_order_id":   entity.OrderID,
			"gateway_payment_id": entity.ID,
			"changed":            changed,
		})
		s.logg.Info(ctx, "gateway payment failure recorded")
		return nil
	case EventPaymentCaptured, EventOrderPaid:
		if event.Payload.Payment == nil {
			s.logg.Debug(ctx, "gateway capture without payment entity")
			return nil
		}
		entity := event.Payload.Payment.Entity
		if strings.TrimSpace(entity.OrderID) == "" || strings.TrimSpace(entity.ID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "gateway order or payment id missing")
		}
		attached, err := s.payments.RecordCapture(ctx, entity.OrderID, entity.ID)
		if err != nil {
			return err
		}
		ctx = s.logg.WithFields(ctx, map[string]any{
			"gateway_order_id":   entity.OrderID,
			"gateway_payment_id": entity.ID,
			"attached":           attached,
		})
		s.logg.Debug(ctx, "gateway capture acknowledged")
		return nil
	default:
		return nil
	}
}
