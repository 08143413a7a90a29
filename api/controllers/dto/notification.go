package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/db/models"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      *string    `json:"link,omitempty"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewNotification(n *models.Notification) Notification {
	return Notification{
		ID:        n.ID,
		Type:      n.Type.String(),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		OrderID:   n.OrderID,
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt,
	}
}
