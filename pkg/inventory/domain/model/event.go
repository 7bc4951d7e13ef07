package model

type StockReserved struct {
	ProductID int64
	Quantity  int
	Remaining int
}

func (e StockReserved) Type() string { return "StockReserved" }

type StockReleased struct {
	ProductID int64
	Quantity  int
	Remaining int
}

func (e StockReleased) Type() string { return "StockReleased" }

type StockAdjusted struct {
	ProductID   int64
	OldQuantity int
	NewQuantity int
	Remaining   int
}

func (e StockAdjusted) Type() string { return "StockAdjusted" }

type CatalogReplaced struct {
	Products int
}

func (e CatalogReplaced) Type() string { return "CatalogReplaced" }
