package model

import (
	"errors"

	inventory "storefront/pkg/inventory/domain/model"
)

var ErrItemNotFound = errors.New("cart item not found")

// Item holds a reserved quantity of a product. Every unit counted here has
// already been debited from ledger stock; the snapshot carries the price
// and name as they were at reservation time.
type Item struct {
	Product  inventory.Product
	Quantity int
}

// Cart maps product IDs to reserved items for one session.
type Cart struct {
	SessionID string
	Items     map[int64]*Item
}

func NewCart(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Items: make(map[int64]*Item)}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) Item(productID int64) (*Item, bool) {
	item, ok := c.Items[productID]
	return item, ok
}
