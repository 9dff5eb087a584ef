package repositories

import (
	"fmt"

	"bazaar/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository. The
// snapshot fields (lines, pricing, shipping, history) are stored as JSON
// columns, so an order row never references live product or cart rows.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetAll retrieves all orders from the database.
func (r *GORMOrderRepository) GetAll() ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves an order by its ID from the database.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByShopper retrieves all orders belonging to one shopper.
func (r *GORMOrderRepository) GetByShopper(shopperID string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Find(&orders, "shopper_id = ?", shopperID).Error; err != nil {
		return nil, fmt.Errorf("failed to get orders for shopper %s: %w", shopperID, err)
	}
	return orders, nil
}

// Create inserts a new order into the database.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}
	return nil
}

// UpdateStatus sets the order's status and appends the history entry. The
// stored history is only ever extended, never rewritten.
func (r *GORMOrderRepository) UpdateStatus(id string, status models.OrderStatus, entry models.StatusHistoryEntry) error {
	var order models.Order
	if err := r.db.First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("order with ID %s not found for status update", id)
		}
		return fmt.Errorf("failed to load order %s for status update: %w", id, err)
	}
	order.Status = status
	order.History = append(order.History, entry)
	if err := r.db.Save(&order).Error; err != nil {
		return fmt.Errorf("failed to update status for order %s: %w", id, err)
	}
	return nil
}
