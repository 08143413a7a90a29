package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.find(ctx, r.db.Where("id = ?", orderID))
}

func (r *repository) FindForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	return r.find(ctx, r.db.Where("id = ? AND user_id = ?", orderID, userID))
}

func (r *repository) find(ctx context.Context, query *gorm.DB) (*models.Order, error) {
	var order models.Order
	err := query.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// UpdateWithVersion applies updates only when the stored version matches and
// bumps it. It reports false when another writer got there first.
func (r *repository) UpdateWithVersion(ctx context.Context, orderID uuid.UUID, version int, updates map[string]any) (bool, error) {
	values := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")
	values["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", orderID, version).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateActiveItems(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	values := withUpdatedAt(updates)
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND status = ?", orderID, enums.ItemStatusActive).
		Updates(values).Error
}

// UpdateItemWhere updates a single item when it still matches guard.
func (r *repository) UpdateItemWhere(ctx context.Context, itemID uuid.UUID, guard ItemGuard, updates map[string]any) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("id = ?", itemID)
	if guard.Status != nil {
		query = query.Where("status = ?", *guard.Status)
	}
	if guard.ReturnStatus != nil {
		query = query.Where("return_status = ?", *guard.ReturnStatus)
	}
	if guard.ReturnProcessed != nil {
		query = query.Where("return_processed = ?", *guard.ReturnProcessed)
	}
	res := query.Updates(withUpdatedAt(updates))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.list(ctx, r.db.Where("user_id = ?", userID), params)
}

func (r *repository) ListAll(ctx context.Context, filters AdminOrderFilters, params pagination.Params) (*OrderList, error) {
	query := r.db
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filters.PaymentMethod)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", filters.DateFrom.UTC())
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", filters.DateTo.UTC())
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		query = query.Where("order_number LIKE ?", "%"+strings.ToUpper(q)+"%")
	}
	return r.list(ctx, query, params)
}

func (r *repository) list(ctx context.Context, query *gorm.DB, params pagination.Params) (*OrderList, error) {
	query, err := pagination.Newest(query.WithContext(ctx).Preload("Items"), params)
	if err != nil {
		return nil, err
	}
	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	rows, next := pagination.Trim(rows, params, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Orders = append(out.Orders, summarize(row))
	}
	return out, nil
}

func withUpdatedAt(updates map[string]any) map[string]any {
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["updated_at"] = time.Now().UTC()
	return values
}
