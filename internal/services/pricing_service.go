package services

import (
	"fmt"

	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/shopspring/decimal"
)

// StockStatus classifies the remaining quantity of a product or variant.
type StockStatus string

const (
	StockInStock StockStatus = "in_stock"
	StockLow     StockStatus = "low_stock"
	StockOut     StockStatus = "out_of_stock"
)

// StockState is the resolved stock picture for a selection. Unlimited is
// set when the product does not track inventory; Quantity is meaningless in
// that case.
type StockState struct {
	Quantity  int         `json:"quantity"`
	Unlimited bool        `json:"unlimited"`
	Status    StockStatus `json:"status"`
}

// PriceQuote is the resolved effective price for a selection. ComparePrice
// is nil when neither the variant nor the product declares one.
type PriceQuote struct {
	Price        decimal.Decimal  `json:"price"`
	ComparePrice *decimal.Decimal `json:"compare_price,omitempty"`
}

// PricingService is the single source of truth for "what does selection X
// cost and how many are left". Every cart mutation and every checkout goes
// through it; nothing else reads variant overrides directly.
type PricingService struct {
	repo repositories.ProductRepository
}

// NewPricingService creates a new PricingService.
func NewPricingService(repo repositories.ProductRepository) *PricingService {
	return &PricingService{
		repo: repo,
	}
}

// ResolvePrice returns the effective price for the selection: the variant's
// own price when a combination is given and the variant declares one, else
// the product's base price. A combination that matches no variant, or one
// whose variant is inactive, resolves to models.ErrVariantUnavailable — a
// removed variant must never silently fall back to the base price.
func (s *PricingService) ResolvePrice(product *models.Product, combination models.Combination) (PriceQuote, error) {
	if len(combination) == 0 {
		return PriceQuote{Price: product.BasePrice, ComparePrice: product.CompareAtPrice}, nil
	}

	variant := product.FindVariant(combination)
	if variant == nil {
		return PriceQuote{}, fmt.Errorf("combination %s: %w", combination.Key(), models.ErrVariantUnavailable)
	}
	if !variant.Active {
		return PriceQuote{}, fmt.Errorf("combination %s is inactive: %w", combination.Key(), models.ErrVariantUnavailable)
	}

	quote := PriceQuote{Price: product.BasePrice, ComparePrice: product.CompareAtPrice}
	if variant.Price != nil {
		quote.Price = *variant.Price
	}
	if variant.ComparePrice != nil {
		quote.ComparePrice = variant.ComparePrice
	}
	return quote, nil
}

// ResolveStock returns the remaining quantity and its classification for
// the selection, computed against the variant's own threshold when a
// combination is given, else the product's. When the product does not track
// inventory it always reports unlimited in-stock.
func (s *PricingService) ResolveStock(product *models.Product, combination models.Combination) (StockState, error) {
	if !product.TrackInventory {
		return StockState{Unlimited: true, Status: StockInStock}, nil
	}

	quantity := product.StockQuantity
	threshold := product.LowStockThreshold
	if len(combination) > 0 {
		variant := product.FindVariant(combination)
		if variant == nil {
			return StockState{}, fmt.Errorf("combination %s: %w", combination.Key(), models.ErrVariantUnavailable)
		}
		quantity = variant.StockQuantity
		threshold = variant.LowStockThreshold
	}

	state := StockState{Quantity: quantity}
	switch {
	case quantity <= 0:
		state.Status = StockOut
	case quantity <= threshold:
		state.Status = StockLow
	default:
		state.Status = StockInStock
	}
	return state, nil
}

// AdjustStock applies delta (negative for decrement) to the selection's
// stock counter through the repository's atomic conditional primitive. A
// decrement below zero fails with models.ErrInsufficientStock unless
// allowBackorder is true, in which case the counter may go negative — it is
// never silently clamped. The adjustment is applied exactly once per call;
// callers must not blindly retry a failure, since a retry after a transient
// write conflict can double-decrement.
func (s *PricingService) AdjustStock(product *models.Product, combination models.Combination, delta int, allowBackorder bool) error {
	if !product.TrackInventory {
		return nil // untracked inventory has no counter to move
	}
	return s.repo.AdjustStock(product.ID, combination, delta, allowBackorder)
}
