package logger

import (
	"context"

	"github.com/rs/zerolog"
)

type zeroContext = zerolog.Context

const (
	FieldRequestID   = "request_id"
	FieldUserID      = "user_id"
	FieldActorRole   = "actor_role"
	FieldOrderID     = "order_id"
	FieldOrderNumber = "order_number"
	FieldCheckoutID  = "checkout_id"
)

func (l *Logger) scoped(ctx context.Context, build func(zctx zeroContext) zeroContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	scoped := build(l.entry(ctx).With()).Logger()
	return context.WithValue(ctx, ctxKey{}, &scoped)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.scoped(ctx, func(zctx zeroContext) zeroContext {
		return zctx.Interface(key, value)
	})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.scoped(ctx, func(zctx zeroContext) zeroContext {
		return zctx.Fields(fields)
	})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, FieldRequestID, requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, FieldUserID, userID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, FieldActorRole, role)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.WithField(ctx, FieldOrderID, orderID)
}

// WithOrder tags both the internal id and the customer-facing order number.
func (l *Logger) WithOrder(ctx context.Context, orderID, orderNumber string) context.Context {
	return l.WithFields(ctx, map[string]any{
		FieldOrderID:     orderID,
		FieldOrderNumber: orderNumber,
	})
}

func (l *Logger) WithCheckoutID(ctx context.Context, checkoutID string) context.Context {
	return l.WithField(ctx, FieldCheckoutID, checkoutID)
}
