package address

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

func TestGetForUserEnforcesOwnership(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	owner := uuid.New()
	addr := dbtest.MustCreateAddress(t, conn, owner)

	got, err := svc.GetForUser(context.Background(), nil, addr.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "Kochi", got.City)

	_, err = svc.GetForUser(context.Background(), nil, addr.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, pkgerrors.ReasonAddressNotFound, pkgerrors.ReasonOf(err))
}

func TestCreateListDelete(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	userID := uuid.New()

	_, err = svc.Create(context.Background(), userID, CreateInput{Name: "Ravi"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	addr, err := svc.Create(context.Background(), userID, CreateInput{
		Name: "Ravi", Phone: "9000000000", Line1: "2 MG Road",
		City: "Bengaluru", State: "Karnataka", PostalCode: "560001",
	})
	require.NoError(t, err)
	assert.Equal(t, "IN", addr.Country)
	assert.Nil(t, addr.Line2)

	rows, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, svc.Delete(context.Background(), addr.ID, userID))
	assert.Error(t, svc.Delete(context.Background(), addr.ID, userID))
}
