package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	session "storefront/pkg/session/domain/model"
)

var (
	ErrIncompleteOrder = errors.New("delivery method has not been selected")
	ErrEmptyOrder      = errors.New("cannot finalize an empty order")
)

// Line is one itemized row of an order summary.
type Line struct {
	Name          string
	Quantity      int
	SubtotalCents int64
}

// OrderSummary is the permanent result of a finalized cart. Stock was
// already debited at reservation time, so the summary is purely
// informational.
type OrderSummary struct {
	OrderID    uuid.UUID
	SessionID  string
	Lines      []Line
	TotalCents int64
	Delivery   session.DeliveryMethod
	Pavilion   string
	PlacedAt   time.Time
}

func (o *OrderSummary) Render() string {
	var b strings.Builder
	b.WriteString("Your order:\n")
	for _, line := range o.Lines {
		fmt.Fprintf(&b, "- %s x%d pcs. - %s\n", line.Name, line.Quantity, FormatPrice(line.SubtotalCents))
	}
	fmt.Fprintf(&b, "Total: %s\n", FormatPrice(o.TotalCents))
	fmt.Fprintf(&b, "Delivery method: %s", o.Delivery)
	if o.Delivery == session.DeliveryPavilion && o.Pavilion != "" {
		fmt.Fprintf(&b, "\nPavilion number: %s", o.Pavilion)
	}
	return b.String()
}

// FormatPrice renders a cent amount with a space as the thousands
// separator, dropping the fraction when it is zero: 150000 -> "1 500".
func FormatPrice(cents int64) string {
	units := cents / 100
	fraction := cents % 100

	digits := fmt.Sprintf("%d", units)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}
	if fraction != 0 {
		fmt.Fprintf(&b, ".%02d", fraction)
	}
	return b.String()
}
