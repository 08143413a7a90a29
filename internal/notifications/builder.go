package notifications

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/outbox/payloads"
)

var feedEvents = map[enums.OutboxEventType]bool{
	enums.EventOrderCreated:       true,
	enums.EventOrderCanceled:      true,
	enums.EventOrderStatusChanged: true,
	enums.EventReturnDecided:      true,
	enums.EventWalletCredited:     true,
	enums.EventPaymentFailed:      true,
}

func handles(eventType enums.OutboxEventType) bool {
	return feedEvents[eventType]
}

// Build maps an event payload to the feed entry shown to its customer. It
// returns nil for events the feed ignores.
func Build(eventType enums.OutboxEventType, eventID string, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventOrderCreated:
		var p payloads.OrderCreatedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Your order %s for %s has been placed.", p.OrderNumber, rupees(p.TotalPaise))
		if p.PaymentMethod == enums.PaymentMethodCOD {
			msg = fmt.Sprintf("Your order %s has been placed. Pay %s on delivery.", p.OrderNumber, rupees(p.TotalPaise))
		}
		return orderNotification(p.UserID, p.OrderID, eventID, enums.NotificationTypeOrder, "Order placed", msg)

	case enums.EventOrderCanceled:
		var p payloads.OrderCanceledEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Order %s was cancelled.", p.OrderNumber)
		if p.RefundPaise > 0 {
			msg = fmt.Sprintf("Order %s was cancelled. %s will be credited to your wallet.", p.OrderNumber, rupees(p.RefundPaise))
		}
		return orderNotification(p.UserID, p.OrderID, eventID, enums.NotificationTypeOrder, "Order cancelled", msg)

	case enums.EventOrderStatusChanged:
		var p payloads.OrderStatusChangedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		title, msg := "Order updated", fmt.Sprintf("Order %s is now %s.", p.OrderNumber, p.To)
		switch p.To {
		case enums.OrderStatusShipped:
			title, msg = "Order shipped", fmt.Sprintf("Order %s is on its way.", p.OrderNumber)
		case enums.OrderStatusDelivered:
			title, msg = "Order delivered", fmt.Sprintf("Order %s has been delivered.", p.OrderNumber)
		}
		return orderNotification(p.UserID, p.OrderID, eventID, enums.NotificationTypeOrder, title, msg)

	case enums.EventReturnDecided:
		var p payloads.ReturnDecidedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if p.Decision == enums.ReturnDecisionReject {
			return orderNotification(p.UserID, p.OrderID, eventID, enums.NotificationTypeReturn, "Return rejected",
				fmt.Sprintf("Your return request on order %s was not approved.", p.OrderNumber))
		}
		return orderNotification(p.UserID, p.OrderID, eventID, enums.NotificationTypeReturn, "Return approved",
			fmt.Sprintf("Your return on order %s was approved. %s has been refunded to your wallet.", p.OrderNumber, rupees(p.RefundPaise)))

	case enums.EventWalletCredited:
		var p payloads.WalletCreditedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if p.UserID == uuid.Nil {
			return nil, fmt.Errorf("user id missing")
		}
		return &models.Notification{
			UserID:  p.UserID,
			EventID: eventID,
			Type:    enums.NotificationTypeWallet,
			Title:   "Wallet credited",
			Message: fmt.Sprintf("%s added to your wallet. Balance %s.", rupees(p.AmountPaise), rupees(p.BalancePaise)),
			Link:    stringPtr("/wallet"),
		}, nil

	case enums.EventPaymentFailed:
		var p payloads.PaymentFailedEvent
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if p.UserID == uuid.Nil {
			return nil, fmt.Errorf("user id missing")
		}
		msg := "Your payment could not be completed. No order was placed."
		if reason := strings.TrimSpace(p.Reason); reason != "" {
			msg = fmt.Sprintf("Your payment could not be completed: %s. No order was placed.", reason)
		}
		return &models.Notification{
			UserID:  p.UserID,
			EventID: eventID,
			Type:    enums.NotificationTypePayment,
			Title:   "Payment failed",
			Message: msg,
			Link:    stringPtr("/cart"),
		}, nil
	}
	return nil, nil
}

func orderNotification(userID, orderID uuid.UUID, eventID string, kind enums.NotificationType, title, message string) (*models.Notification, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id missing")
	}
	n := &models.Notification{
		UserID:  userID,
		EventID: eventID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
	if orderID != uuid.Nil {
		n.OrderID = &orderID
		n.Link = stringPtr("/orders/" + orderID.String())
	}
	return n, nil
}

func decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// rupees renders paise as "₹1080.00".
func rupees(paise int64) string {
	return "₹" + decimal.New(paise, -2).StringFixed(2)
}

func stringPtr(value string) *string {
	return &value
}
