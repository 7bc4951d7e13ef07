package model

import (
	"github.com/google/uuid"

	session "storefront/pkg/session/domain/model"
)

type OrderFinalized struct {
	OrderID    uuid.UUID
	SessionID  string
	TotalCents int64
	Delivery   session.DeliveryMethod
}

func (e OrderFinalized) Type() string { return "OrderFinalized" }
