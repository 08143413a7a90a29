package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/internal/inventory"
	"github.com/kartwise/storefront-backend/pkg/db/dbtest"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), inventory.NewCatalog(conn), 10)
	require.NoError(t, err)
	return svc, conn
}

func TestAddItemMergesQuantityAndPrices(t *testing.T) {
	svc, conn := newTestService(t)
	userID := uuid.New()
	variant := dbtest.MustCreateVariant(t, conn, dbtest.VariantSeed{ProductName: "Denim Jacket", PricePaise: 250000, Stock: 8})

	_, err := svc.AddItem(context.Background(), userID, variant.ID, 2)
	require.NoError(t, err)
	view, err := svc.AddItem(context.Background(), userID, variant.ID, 3)
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, "Denim Jacket", view.Items[0].ProductName)
	assert.Equal(t, int64(1250000), view.SubtotalPaise)
	assert.True(t, view.Items[0].Available)
}

func TestAddItemLimits(t *testing.T) {
	svc, conn := newTestService(t)
	userID := uuid.New()
	scarce := dbtest.MustCreateVariant(t, conn, dbtest.VariantSeed{PricePaise: 1000, Stock: 2})
	plenty := dbtest.MustCreateVariant(t, conn, dbtest.VariantSeed{PricePaise: 1000, Stock: 50})

	_, err := svc.AddItem(context.Background(), userID, scarce.ID, 3)
	assert.Equal(t, pkgerrors.ReasonInsufficientStock, pkgerrors.ReasonOf(err))

	_, err = svc.AddItem(context.Background(), userID, plenty.ID, 11)
	assert.Equal(t, pkgerrors.ReasonQuantityLimit, pkgerrors.ReasonOf(err))

	_, err = svc.AddItem(context.Background(), userID, plenty.ID, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, conn.Model(&models.Variant{}).Where("id = ?", plenty.ID).Update("is_blocked", true).Error)
	_, err = svc.AddItem(context.Background(), userID, plenty.ID, 1)
	assert.Equal(t, pkgerrors.ReasonProductUnavailable, pkgerrors.ReasonOf(err))
}

func TestUpdateAndRemoveItem(t *testing.T) {
	svc, conn := newTestService(t)
	userID := uuid.New()
	variant := dbtest.MustCreateVariant(t, conn, dbtest.VariantSeed{PricePaise: 1000, Stock: 5})

	view, err := svc.AddItem(context.Background(), userID, variant.ID, 1)
	require.NoError(t, err)
	itemID := view.Items[0].ID

	view, err = svc.UpdateQuantity(context.Background(), userID, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Items[0].Quantity)
	assert.Equal(t, int64(4000), view.SubtotalPaise)

	_, err = svc.UpdateQuantity(context.Background(), uuid.New(), itemID, 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	view, err = svc.RemoveItem(context.Background(), userID, itemID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestLoadForCheckoutAndClear(t *testing.T) {
	svc, conn := newTestService(t)
	userID := uuid.New()

	_, err := svc.LoadForCheckout(context.Background(), nil, userID)
	assert.Equal(t, pkgerrors.ReasonEmptyCart, pkgerrors.ReasonOf(err))

	variant := dbtest.MustCreateVariant(t, conn, dbtest.VariantSeed{PricePaise: 1000, Stock: 5})
	c := dbtest.MustFillCart(t, conn, userID, map[*models.Variant]int{variant: 2})

	loaded, err := svc.LoadForCheckout(context.Background(), nil, userID)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 1)

	require.NoError(t, svc.Clear(context.Background(), nil, c.ID))
	_, err = svc.LoadForCheckout(context.Background(), nil, userID)
	assert.Equal(t, pkgerrors.ReasonEmptyCart, pkgerrors.ReasonOf(err))
}
