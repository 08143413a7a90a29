package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/pkg/db/dbtest"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

func TestCatalogGetVariantPreloadsProduct(t *testing.T) {
	db := dbtest.Open(t)
	variant := dbtest.MustCreateVariant(t, db, dbtest.VariantSeed{ProductName: "Linen Kurta", PricePaise: 120000, Stock: 3})

	got, err := NewCatalog(db).GetVariant(context.Background(), variant.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Product)
	assert.Equal(t, "Linen Kurta", got.Product.Name)
	assert.True(t, IsAvailable(got))

	_, err = NewCatalog(db).GetVariant(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestIsAvailable(t *testing.T) {
	listed := &models.Product{IsListed: true}
	cases := map[string]struct {
		variant *models.Variant
		want    bool
	}{
		"nil":              {nil, false},
		"available":        {&models.Variant{Product: listed}, true},
		"variant blocked":  {&models.Variant{IsBlocked: true, Product: listed}, false},
		"product unlisted": {&models.Variant{Product: &models.Product{}}, false},
		"product blocked":  {&models.Variant{Product: &models.Product{IsListed: true, IsBlocked: true}}, false},
		"category hidden": {&models.Variant{Product: &models.Product{
			IsListed: true,
			Category: &models.Category{IsListed: false},
		}}, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsAvailable(tc.variant))
		})
	}
}
