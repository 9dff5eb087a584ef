package repositories

import (
	"bazaar/internal/models"
)

// OrderRepository defines the interface for order data access. Orders are
// immutable snapshots: the only mutation after Create is UpdateStatus, which
// sets the new status and appends the history entry in one step. History is
// append-only; implementations must never edit or truncate it.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	GetByShopper(shopperID string) ([]models.Order, error)
	Create(order *models.Order) error
	UpdateStatus(id string, status models.OrderStatus, entry models.StatusHistoryEntry) error
}
