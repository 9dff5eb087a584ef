package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OptionType is the closed set of variant axes a product may declare.
// Keeping this an enum (rather than free-form strings) lets combination
// derivation and option validation stay exhaustive.
type OptionType string

const (
	OptionColor    OptionType = "color"
	OptionSize     OptionType = "size"
	OptionMaterial OptionType = "material"
	OptionStorage  OptionType = "storage"
	OptionStyle    OptionType = "style"
	OptionOther    OptionType = "other"
)

// Valid reports whether t is one of the known option axes.
func (t OptionType) Valid() bool {
	switch t {
	case OptionColor, OptionSize, OptionMaterial, OptionStorage, OptionStyle, OptionOther:
		return true
	}
	return false
}

// Measurement holds the physical dimension a size option may carry.
type Measurement struct {
	Unit  string  `json:"unit,omitempty"`
	Value float64 `json:"value,omitempty"`
}

// VariantOption is one axis value within a variant, e.g. (color, "black").
// ColorHex is only meaningful for color options, Measurement only for size.
type VariantOption struct {
	Type        OptionType   `json:"type" validate:"required"`
	Name        string       `json:"name" validate:"required,max=100"`
	Value       string       `json:"value" validate:"required,max=100"`
	ColorHex    string       `json:"color_hex,omitempty" validate:"omitempty,hexcolor"`
	Measurement *Measurement `json:"measurement,omitempty"`
}

// Validate checks the per-kind fields of the option.
func (o VariantOption) Validate() error {
	if !o.Type.Valid() {
		return fmt.Errorf("unknown option type %q", o.Type)
	}
	if o.ColorHex != "" && o.Type != OptionColor {
		return fmt.Errorf("color_hex is only valid on color options, got %q", o.Type)
	}
	if o.Measurement != nil && o.Type != OptionSize {
		return fmt.Errorf("measurement is only valid on size options, got %q", o.Type)
	}
	return nil
}

// SelectedOption is a (type, value) pair identifying one axis choice.
type SelectedOption struct {
	Type  OptionType `json:"type" validate:"required"`
	Value string     `json:"value" validate:"required"`
}

// Combination — the variant's natural identifier — is the list of selected
// options, ordered by the product's declared axes. Combinations are compared
// structurally, never by a joined display string, so an axis value that
// happens to contain a separator character cannot collide with another
// combination.
type Combination []SelectedOption

// Key renders the canonical storage/index form of the combination:
// "type=value" pairs joined with "|" in the combination's own order.
// Used for persistence keys and event payloads; equality checks go
// through Equal.
func (c Combination) Key() string {
	parts := make([]string, 0, len(c))
	for _, opt := range c {
		parts = append(parts, string(opt.Type)+"="+opt.Value)
	}
	return strings.Join(parts, "|")
}

// Equal reports whether two combinations select the same options in the
// same order.
func (c Combination) Equal(other Combination) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// EqualAsSet reports whether two combinations select the same (type, value)
// pairs regardless of order. Used for caller-supplied option lists whose
// ordering is not trusted.
func (c Combination) EqualAsSet(other Combination) bool {
	if len(c) != len(other) {
		return false
	}
	seen := make(map[SelectedOption]int, len(c))
	for _, opt := range c {
		seen[opt]++
	}
	for _, opt := range other {
		seen[opt]--
		if seen[opt] < 0 {
			return false
		}
	}
	return true
}

// Sorted returns a copy of the combination ordered by the given axis
// declaration. Options whose type is not declared keep their relative
// order after all declared ones.
func (c Combination) Sorted(axes []OptionType) Combination {
	rank := make(map[OptionType]int, len(axes))
	for i, t := range axes {
		rank[t] = i
	}
	out := make(Combination, len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iOK := rank[out[i].Type]
		rj, jOK := rank[out[j].Type]
		if iOK != jOK {
			return iOK
		}
		return ri < rj
	})
	return out
}

// Dimensions holds a variant's physical bounding box in centimetres.
type Dimensions struct {
	Length float64 `json:"length,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Variant is one purchasable combination of a product's options, with its
// own optional price/stock/SKU overrides. A nil override falls back to the
// product's base value at resolution time.
type Variant struct {
	Options           []VariantOption  `json:"options" validate:"required,min=1,dive"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	ComparePrice      *decimal.Decimal `json:"compare_price,omitempty"`
	Cost              *decimal.Decimal `json:"cost,omitempty"`
	StockQuantity     int              `json:"stock_quantity"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	SKU               string           `json:"sku,omitempty"`
	Images            []string         `json:"images,omitempty"`
	Active            bool             `json:"active"`
	WeightGrams       int              `json:"weight_grams,omitempty"`
	Dimensions        *Dimensions      `json:"dimensions,omitempty"`
}

// Combination derives the variant's identifier, ordered by the product's
// declared axes.
func (v Variant) Combination(axes []OptionType) Combination {
	c := make(Combination, 0, len(v.Options))
	for _, opt := range v.Options {
		c = append(c, SelectedOption{Type: opt.Type, Value: opt.Value})
	}
	return c.Sorted(axes)
}

// Product represents a vendor's catalog entry.
// Invariant: if Variants is non-empty, every variant's combination is unique
// within the product (enforced by the catalog service).
type Product struct {
	ID                string           `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	VendorID          string           `json:"vendor_id" gorm:"index;type:varchar(36)"`
	Name              string           `json:"name" validate:"required,min=3,max=200"`
	Description       string           `json:"description" validate:"omitempty,max=2000"`
	BasePrice         decimal.Decimal  `json:"base_price" gorm:"type:decimal(12,2)"`
	CompareAtPrice    *decimal.Decimal `json:"compare_at_price,omitempty" gorm:"type:decimal(12,2)"`
	StockQuantity     int              `json:"stock_quantity" validate:"gte=0"`
	LowStockThreshold int              `json:"low_stock_threshold" validate:"gte=0"`
	TrackInventory    bool             `json:"track_inventory"`
	AllowBackorders   bool             `json:"allow_backorders"`
	MaxPerOrder       int              `json:"max_per_order" validate:"gte=0"` // 0 means uncapped
	OptionAxes        []OptionType     `json:"option_axes,omitempty" gorm:"serializer:json"`
	Variants          []Variant        `json:"variants,omitempty" gorm:"serializer:json"`
	gorm.Model        `json:"-"`       // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// FindVariant returns the variant whose combination structurally matches the
// given one, or nil if no such variant exists.
func (p *Product) FindVariant(combination Combination) *Variant {
	want := combination.Sorted(p.OptionAxes)
	for i := range p.Variants {
		if p.Variants[i].Combination(p.OptionAxes).Equal(want) {
			return &p.Variants[i]
		}
	}
	return nil
}

// FindVariantByOptions matches a caller-supplied option list against the
// registered variants as a set, tolerant of the caller's option ordering.
func (p *Product) FindVariantByOptions(options Combination) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Combination(p.OptionAxes).EqualAsSet(options) {
			return &p.Variants[i]
		}
	}
	return nil
}
