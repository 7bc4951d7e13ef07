package model

type ItemAdded struct {
	SessionID string
	ProductID int64
	Quantity  int
}

func (e ItemAdded) Type() string { return "CartItemAdded" }

type ItemQuantityChanged struct {
	SessionID   string
	ProductID   int64
	OldQuantity int
	NewQuantity int
}

func (e ItemQuantityChanged) Type() string { return "CartItemQuantityChanged" }

type ItemRemoved struct {
	SessionID string
	ProductID int64
}

func (e ItemRemoved) Type() string { return "CartItemRemoved" }

type CartCleared struct {
	SessionID     string
	StockReturned bool
}

func (e CartCleared) Type() string { return "CartCleared" }
