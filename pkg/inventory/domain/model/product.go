package model

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock quantity")
	ErrInvalidCatalog    = errors.New("catalog contains invalid rows")
)

// Product is one row of the catalog table. Stock is the number of units
// still available for reservation; it never goes below zero.
type Product struct {
	ID         int64
	Name       string
	Category   string
	PriceCents int64
	Stock      int
}

// CatalogStore is the sole durability mechanism for the product table.
// The ledger performs a full load before and a full save after every
// mutating operation; no in-memory copy is authoritative in between.
type CatalogStore interface {
	LoadAll() ([]Product, error)
	SaveAll(products []Product) error
}

// InsufficientStockError reports how many units are actually available so
// callers can put the number into a user-facing message. errors.Is matches
// it against ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
