package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

// Service is the customer address book. Orders copy an address at placement,
// so later edits or deletes never touch existing orders.
type Service interface {
	GetForUser(ctx context.Context, tx *gorm.DB, addressID, userID uuid.UUID) (*models.Address, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error)
	Delete(ctx context.Context, addressID, userID uuid.UUID) error
}

type CreateInput struct {
	Name       string
	Phone      string
	Line1      string
	Line2      string
	Landmark   string
	City       string
	State      string
	PostalCode string
	Country    string
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetForUser(ctx context.Context, tx *gorm.DB, addressID, userID uuid.UUID) (*models.Address, error) {
	if addressID == uuid.Nil {
		return nil, pkgerrors.Validation(pkgerrors.ReasonAddressNotFound, "address id is required")
	}
	addr, err := s.repo.WithTx(tx).FindForUser(ctx, addressID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}
	if addr == nil {
		return nil, pkgerrors.NotFound(pkgerrors.ReasonAddressNotFound, "address not found")
	}
	return addr, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	return rows, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error) {
	required := map[string]string{
		"name":        input.Name,
		"phone":       input.Phone,
		"line1":       input.Line1,
		"city":        input.City,
		"state":       input.State,
		"postal_code": input.PostalCode,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
		}
	}
	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if country == "" {
		country = "IN"
	}
	addr := &models.Address{
		UserID:     userID,
		Name:       strings.TrimSpace(input.Name),
		Phone:      strings.TrimSpace(input.Phone),
		Line1:      strings.TrimSpace(input.Line1),
		Line2:      optional(input.Line2),
		Landmark:   optional(input.Landmark),
		City:       strings.TrimSpace(input.City),
		State:      strings.TrimSpace(input.State),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Country:    country,
	}
	if err := s.repo.Create(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
	}
	return addr, nil
}

func (s *service) Delete(ctx context.Context, addressID, userID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, addressID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address")
	}
	if !deleted {
		return pkgerrors.NotFound(pkgerrors.ReasonAddressNotFound, "address not found")
	}
	return nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
