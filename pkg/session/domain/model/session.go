package model

import (
	"sync"

	"github.com/google/uuid"

	cart "storefront/pkg/cart/domain/model"
)

// AwaitingMode says what the next free-text message from the session means.
// At most one mode is active at a time; entering a mode replaces the
// previous one.
type AwaitingMode int

const (
	AwaitingNone AwaitingMode = iota
	AwaitingQuantity
	AwaitingQuantityChange
	AwaitingPavilionNumber
	AwaitingNewAdminID
)

type DeliveryMethod int

const (
	DeliveryUnset DeliveryMethod = iota
	DeliveryPavilion
	DeliveryPickup
)

func (m DeliveryMethod) String() string {
	switch m {
	case DeliveryPavilion:
		return "delivery to your pavilion"
	case DeliveryPickup:
		return "pickup"
	default:
		return "unset"
	}
}

// Session is one user's interaction context. The mutex serializes event
// handling for the session against the lifecycle broadcast, which touches
// every session's cart from outside.
type Session struct {
	mu sync.Mutex

	ID   string
	Cart *cart.Cart

	Mode           AwaitingMode
	PendingProduct int64
	PendingItem    int64

	Delivery       DeliveryMethod
	PavilionNumber string

	// Handles of outbound messages, kept so the lifecycle close can delete
	// them best-effort.
	Messages []uuid.UUID
}

func NewSession(id string) *Session {
	return &Session{ID: id, Cart: cart.NewCart(id)}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// AwaitQuantity arms quantity entry for a freshly selected product.
func (s *Session) AwaitQuantity(productID int64) {
	s.CancelInput()
	s.Mode = AwaitingQuantity
	s.PendingProduct = productID
}

// AwaitQuantityChange arms quantity-change entry for an existing cart item.
func (s *Session) AwaitQuantityChange(productID int64) {
	s.CancelInput()
	s.Mode = AwaitingQuantityChange
	s.PendingItem = productID
}

func (s *Session) AwaitPavilionNumber() {
	s.CancelInput()
	s.Mode = AwaitingPavilionNumber
}

func (s *Session) AwaitNewAdminID() {
	s.CancelInput()
	s.Mode = AwaitingNewAdminID
}

// CancelInput abandons any awaiting-input mode together with its pending
// selection. No reservation has been made at this point, so there is
// nothing to undo in the ledger.
func (s *Session) CancelInput() {
	s.Mode = AwaitingNone
	s.PendingProduct = 0
	s.PendingItem = 0
}

// ResetDelivery clears checkout progress after finalization.
func (s *Session) ResetDelivery() {
	s.Delivery = DeliveryUnset
	s.PavilionNumber = ""
}

func (s *Session) RecordMessage(handle uuid.UUID) {
	s.Messages = append(s.Messages, handle)
}

// RetainOnly drops the recorded message history and keeps a single handle.
func (s *Session) RetainOnly(handle uuid.UUID) {
	s.Messages = []uuid.UUID{handle}
}

// ClearMessages forgets the recorded message history entirely.
func (s *Session) ClearMessages() {
	s.Messages = nil
}
