package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/internal/inventory"
	"github.com/kartwise/storefront-backend/internal/wallet"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/metrics"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/payloads"
	"github.com/kartwise/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the order lifecycle after placement.
type Service interface {
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	RequestReturn(ctx context.Context, input ReturnInput) (*models.OrderItem, error)
	DecideReturn(ctx context.Context, input DecideReturnInput) (*models.OrderItem, error)
	AdvanceStatus(ctx context.Context, input AdvanceStatusInput) (*models.Order, error)
	Get(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, filters AdminOrderFilters, params pagination.Params) (*OrderList, error)
}

type CancelInput struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	Reason    string
	ActorRole enums.Role
}

type ReturnInput struct {
	OrderID uuid.UUID
	ItemID  uuid.UUID
	UserID  uuid.UUID
	Reason  string
	Details string
}

type DecideReturnInput struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Decision enums.ReturnDecision
	ActorID  uuid.UUID
}

type AdvanceStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	ActorID uuid.UUID
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outbox.Emitter
	inventory inventory.Ledger
	wallet    wallet.Service
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the lifecycle controller. m may be nil.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, ledger inventory.Ledger, wallets wallet.Service, m *metrics.OrderMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    emitter,
		inventory: ledger,
		wallet:    wallets,
		metrics:   m,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "cancelled by customer"
	}

	var result *models.Order
	var refunded int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID, &input.UserID)
		if err != nil {
			return err
		}
		if !order.Status.CanCancel() {
			return pkgerrors.StateConflict(pkgerrors.ReasonInvalidTransition, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}

		now := s.now()
		updates := map[string]any{
			"status":        enums.OrderStatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
		}
		refundable := order.PaymentStatus == enums.PaymentStatusCompleted &&
			(order.PaymentMethod == enums.PaymentMethodOnline || order.PaymentMethod == enums.PaymentMethodWallet)
		if refundable {
			updates["payment_status"] = enums.PaymentStatusRefunded
		}
		ok, err := repo.UpdateWithVersion(ctx, order.ID, order.Version, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		if !ok {
			return pkgerrors.Conflict(pkgerrors.ReasonConcurrentUpdate, "order was modified concurrently")
		}

		for _, item := range order.Items {
			if item.Status != enums.ItemStatusActive {
				continue
			}
			if err := s.inventory.Release(ctx, tx, item.VariantID, item.Quantity); err != nil {
				if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					return err
				}
				// The variant was removed from the catalog after purchase.
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"order_id":   order.ID.String(),
					"variant_id": item.VariantID.String(),
				}), "skip stock release for missing variant")
			}
		}
		if err := repo.UpdateActiveItems(ctx, order.ID, map[string]any{
			"status":        enums.ItemStatusCancelled,
			"cancel_reason": reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order items")
		}

		if refundable && order.PaymentAmountPaise > 0 {
			if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
				UserID:      order.UserID,
				AmountPaise: order.PaymentAmountPaise,
				Description: fmt.Sprintf("Refund for cancelled order %s", order.OrderNumber),
				OrderRef:    order.OrderNumber,
			}); err != nil {
				return err
			}
			refunded = order.PaymentAmountPaise
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: actorRole(input.ActorRole)},
			Data: payloads.OrderCanceledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				RefundPaise: refunded,
				Reason:      reason,
				CanceledAt:  now,
			},
		}); err != nil {
			return err
		}

		result, err = s.load(ctx, repo, order.ID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if refunded > 0 {
		s.metrics.ObserveRefund(refunded)
	}
	return result, nil
}

func (s *service) RequestReturn(ctx context.Context, input ReturnInput) (*models.OrderItem, error) {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and item id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}

	var result *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID, &input.UserID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.StateConflict(pkgerrors.ReasonNotDelivered, "returns are accepted only for delivered orders")
		}
		item, err := findItem(order, input.ItemID)
		if err != nil {
			return err
		}
		if item.ReturnStatus != enums.ReturnStatusNone {
			return pkgerrors.Conflict(pkgerrors.ReasonAlreadyRequested, "return already requested for this item")
		}
		if item.Status != enums.ItemStatusActive {
			return pkgerrors.StateConflict(pkgerrors.ReasonInvalidTransition, "item is not eligible for return")
		}

		now := s.now()
		updates := map[string]any{
			"return_status":       enums.ReturnStatusPending,
			"return_reason":       reason,
			"return_requested_at": now,
		}
		if details := strings.TrimSpace(input.Details); details != "" {
			updates["return_details"] = details
		}
		active, none := enums.ItemStatusActive, enums.ReturnStatusNone
		ok, err := repo.UpdateItemWhere(ctx, item.ID, ItemGuard{Status: &active, ReturnStatus: &none}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "request return")
		}
		if !ok {
			return pkgerrors.Conflict(pkgerrors.ReasonAlreadyRequested, "return already requested for this item")
		}
		if err := s.bumpVersion(ctx, repo, order); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: enums.RoleCustomer.String()},
			Data: payloads.ReturnRequestedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				ItemID:      item.ID,
				UserID:      order.UserID,
				Reason:      reason,
				RequestedAt: now,
			},
		}); err != nil {
			return err
		}

		result, err = s.reloadItem(ctx, repo, order.ID, item.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) DecideReturn(ctx context.Context, input DecideReturnInput) (*models.OrderItem, error) {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and item id required")
	}
	if !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be accept or reject")
	}

	var result *models.OrderItem
	var refund int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID, nil)
		if err != nil {
			return err
		}
		item, err := findItem(order, input.ItemID)
		if err != nil {
			return err
		}
		switch {
		case item.ReturnProcessed,
			item.ReturnStatus == enums.ReturnStatusRefunded,
			item.ReturnStatus == enums.ReturnStatusApproved,
			item.ReturnStatus == enums.ReturnStatusRejected:
			return pkgerrors.Conflict(pkgerrors.ReasonAlreadyProcessed, "return already processed")
		case item.ReturnStatus != enums.ReturnStatusPending:
			return pkgerrors.StateConflict(pkgerrors.ReasonInvalidTransition, "no return requested for this item")
		}

		now := s.now()
		pending, unprocessed := enums.ReturnStatusPending, false
		guard := ItemGuard{ReturnStatus: &pending, ReturnProcessed: &unprocessed}

		if input.Decision == enums.ReturnDecisionReject {
			ok, err := repo.UpdateItemWhere(ctx, item.ID, guard, map[string]any{
				"return_status":     enums.ReturnStatusRejected,
				"return_decided_at": now,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject return")
			}
			if !ok {
				return pkgerrors.Conflict(pkgerrors.ReasonAlreadyProcessed, "return already processed")
			}
		} else {
			refund = RefundAmount(*order, *item)
			ok, err := repo.UpdateItemWhere(ctx, item.ID, guard, map[string]any{
				"status":              enums.ItemStatusReturned,
				"return_status":       enums.ReturnStatusRefunded,
				"return_processed":    true,
				"return_decided_at":   now,
				"refund_amount_paise": refund,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "accept return")
			}
			if !ok {
				return pkgerrors.Conflict(pkgerrors.ReasonAlreadyProcessed, "return already processed")
			}
			if err := s.inventory.Release(ctx, tx, item.VariantID, item.Quantity); err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return err
			}
			if refund > 0 {
				if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
					UserID:      order.UserID,
					AmountPaise: refund,
					Description: fmt.Sprintf("Refund for returned %s in order %s", item.ProductName, order.OrderNumber),
					OrderRef:    order.OrderNumber,
				}); err != nil {
					return err
				}
			}
		}

		updates := map[string]any{}
		if input.Decision == enums.ReturnDecisionAccept && !hasOtherActiveItems(order, item.ID) {
			updates["payment_status"] = enums.PaymentStatusRefunded
		}
		ok, err := repo.UpdateWithVersion(ctx, order.ID, order.Version, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
		}
		if !ok {
			return pkgerrors.Conflict(pkgerrors.ReasonConcurrentUpdate, "order was modified concurrently")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnDecided,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: enums.RoleAdmin.String()},
			Data: payloads.ReturnDecidedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				ItemID:      item.ID,
				UserID:      order.UserID,
				Decision:    input.Decision,
				RefundPaise: refund,
				DecidedAt:   now,
			},
		}); err != nil {
			return err
		}

		result, err = s.reloadItem(ctx, repo, order.ID, item.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if refund > 0 {
		s.metrics.ObserveRefund(refund)
	}
	return result, nil
}

func (s *service) AdvanceStatus(ctx context.Context, input AdvanceStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID, nil)
		if err != nil {
			return err
		}
		next, ok := order.Status.NextAdminStatus()
		if !ok || next != input.Status {
			return pkgerrors.StateConflict(pkgerrors.ReasonInvalidTransition, "order status cannot move to the requested state").
				WithDetails(map[string]any{"from": order.Status, "to": input.Status})
		}

		now := s.now()
		updates := map[string]any{"status": next}
		switch next {
		case enums.OrderStatusShipped:
			updates["shipped_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
			if order.PaymentMethod == enums.PaymentMethodCOD && order.PaymentStatus == enums.PaymentStatusPending {
				updates["payment_status"] = enums.PaymentStatusCompleted
			}
		}
		ok, err = repo.UpdateWithVersion(ctx, order.ID, order.Version, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !ok {
			return pkgerrors.Conflict(pkgerrors.ReasonConcurrentUpdate, "order was modified concurrently")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: enums.RoleAdmin.String()},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				From:        order.Status,
				To:          next,
				ChangedAt:   now,
			},
		}); err != nil {
			return err
		}

		result, err = s.load(ctx, repo, order.ID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	return s.load(ctx, s.repo, orderID, &userID)
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.load(ctx, s.repo, orderID, nil)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	list, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, listError(err)
	}
	return list, nil
}

func (s *service) ListAll(ctx context.Context, filters AdminOrderFilters, params pagination.Params) (*OrderList, error) {
	list, err := s.repo.ListAll(ctx, filters, params)
	if err != nil {
		return nil, listError(err)
	}
	return list, nil
}

// listError keeps cursor validation errors and hides storage failures.
func listError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
}

// load returns a not found error when the order is missing or, with userID
// set, owned by someone else.
func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID, userID *uuid.UUID) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	if userID != nil {
		order, err = repo.FindForUser(ctx, orderID, *userID)
	} else {
		order, err = repo.FindByID(ctx, orderID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) bumpVersion(ctx context.Context, repo Repository, order *models.Order) error {
	ok, err := repo.UpdateWithVersion(ctx, order.ID, order.Version, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
	}
	if !ok {
		return pkgerrors.Conflict(pkgerrors.ReasonConcurrentUpdate, "order was modified concurrently")
	}
	return nil
}

func (s *service) reloadItem(ctx context.Context, repo Repository, orderID, itemID uuid.UUID) (*models.OrderItem, error) {
	order, err := s.load(ctx, repo, orderID, nil)
	if err != nil {
		return nil, err
	}
	return findItem(order, itemID)
}

func findItem(order *models.Order, itemID uuid.UUID) (*models.OrderItem, error) {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
}

func hasOtherActiveItems(order *models.Order, exceptID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.ID != exceptID && item.Status == enums.ItemStatusActive {
			return true
		}
	}
	return false
}

func actorRole(role enums.Role) string {
	if role == "" {
		return enums.RoleCustomer.String()
	}
	return role.String()
}
