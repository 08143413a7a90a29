package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/kartwise/storefront-backend/api/responses"
	razorpaywebhook "github.com/kartwise/storefront-backend/internal/webhooks/razorpay"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/razorpay"
)

const (
	razorpayConsumer     = "razorpay-webhook"
	maxWebhookBodyBytes  = 1 << 20
	razorpaySignatureHdr = "X-Razorpay-Signature"
	razorpayEventIDHdr   = "X-Razorpay-Event-Id"
)

type RazorpayWebhookService interface {
	HandleEvent(ctx context.Context, event *razorpaywebhook.Event) error
}

type webhookGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// RazorpayWebhook verifies and applies gateway events. Redelivered event ids
// are acknowledged without being handled twice.
func RazorpayWebhook(svc RazorpayWebhookService, secret string, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if strings.TrimSpace(secret) == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(razorpaySignatureHdr))
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "razorpay signature missing"))
			return
		}
		if !razorpay.VerifyWebhookSignature(secret, payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeVerification, "webhook signature invalid").WithReason(pkgerrors.ReasonSignatureInvalid))
			return
		}

		event, err := razorpaywebhook.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		eventID := strings.TrimSpace(r.Header.Get(razorpayEventIDHdr))
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "razorpay event id missing"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMarkProcessed(ctx, razorpayConsumer, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, map[string]any{"duplicate": true})
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			// only a retryable failure frees the id for the gateway's redelivery
			if pkgerrors.Retryable(err) {
				if delErr := guard.Delete(ctx, razorpayConsumer, eventID); delErr != nil && logg != nil {
					logg.Error(logg.WithField(ctx, "event_id", eventID), "release webhook event id", delErr)
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"event_id":   eventID,
				"event_type": event.Event,
			}), "razorpay event processed")
		}
		responses.WriteSuccess(w, map[string]any{"received": true})
	}
}
