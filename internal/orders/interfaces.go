package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	UpdateWithVersion(ctx context.Context, orderID uuid.UUID, version int, updates map[string]any) (bool, error)
	UpdateActiveItems(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateItemWhere(ctx context.Context, itemID uuid.UUID, guard ItemGuard, updates map[string]any) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, filters AdminOrderFilters, params pagination.Params) (*OrderList, error)
}
