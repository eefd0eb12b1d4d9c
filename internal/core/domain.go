package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	Category struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}

	Product struct {
		ID          string   `json:"_id"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Price       float64  `json:"price"`
		CategoryIDs []string `json:"category_ids"`
		ImageURL    string   `json:"image_url,omitempty"`
	}

	// Order totals are derived from the referenced products' prices; clients
	// never set Total directly.
	Order struct {
		ID          string     `json:"_id"`
		Date        time.Time  `json:"date"`
		ProductIDs  []string   `json:"product_ids"`
		Total       float64    `json:"total"`
		ProcessedAt *time.Time `json:"processed_at,omitempty"`
	}
)

const maxNameLength = 200

var (
	ErrEmptyName      = errors.New("empty name")
	ErrNameTooLong    = errors.New("name too long (max 200 characters)")
	ErrInvalidPrice   = errors.New("invalid price")
	ErrInvalidDate    = errors.New("invalid date")
	ErrUnknownProduct = errors.New("unknown product")
)

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (c Category) Validate() error {
	return validateName(c.Name)
}

func (p Product) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if p.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (o Order) Validate() error {
	if o.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// HasCategory reports whether the product is tagged with the category id.
func (p Product) HasCategory(id string) bool {
	id = NormalizeID(id)
	for _, c := range p.CategoryIDs {
		if NormalizeID(c) == id {
			return true
		}
	}
	return false
}

// WithoutCategory returns a copy of the product with the category id removed.
func (p Product) WithoutCategory(id string) Product {
	id = NormalizeID(id)
	kept := make([]string, 0, len(p.CategoryIDs))
	for _, c := range p.CategoryIDs {
		if NormalizeID(c) != id {
			kept = append(kept, c)
		}
	}
	p.CategoryIDs = kept
	return p
}

// OrderTotal sums the prices of productIDs, repeated ids counting once per
// occurrence. Unknown ids yield ErrUnknownProduct.
func OrderTotal(productIDs []string, prices map[string]float64) (float64, error) {
	var total float64
	for _, id := range productIDs {
		price, ok := prices[NormalizeID(id)]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
		}
		total += price
	}
	return total, nil
}

// PriceIndex maps normalized product ids to prices.
func PriceIndex(products []Product) map[string]float64 {
	idx := make(map[string]float64, len(products))
	for _, p := range products {
		idx[NormalizeID(p.ID)] = p.Price
	}
	return idx
}
