package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/db/models"
)

type Address struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"line1"`
	Line2      *string   `json:"line2,omitempty"`
	Landmark   *string   `json:"landmark,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewAddress(a *models.Address) Address {
	return Address{
		ID:         a.ID,
		Name:       a.Name,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		Landmark:   a.Landmark,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		CreatedAt:  a.CreatedAt,
	}
}
