package service

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"storefront/pkg/cart/domain/model"
	"storefront/pkg/common/domain"
	inventory "storefront/pkg/inventory/domain/model"
	ledger "storefront/pkg/inventory/domain/service"
)

var ErrInvalidQuantity = errors.New("quantity must be a positive number")

// CartService moves stock between the ledger and a session's cart. The
// ledger is mutated first; the cart is only touched once the reservation
// is durable, so a failed operation leaves both sides unchanged.
type CartService interface {
	Add(cart *model.Cart, productID int64, quantity int) (inventory.Product, error)
	SetQuantity(cart *model.Cart, productID int64, newQuantity int) error
	Clear(cart *model.Cart, returnStock bool) error
	Total(cart *model.Cart) int64
}

func NewCartService(ledger ledger.LedgerService, dispatcher domain.EventDispatcher) CartService {
	return &cartService{ledger: ledger, dispatcher: dispatcher}
}

type cartService struct {
	ledger     ledger.LedgerService
	dispatcher domain.EventDispatcher
}

func (s *cartService) Add(cart *model.Cart, productID int64, quantity int) (inventory.Product, error) {
	if quantity <= 0 {
		// Rejected before the ledger is consulted; adding zero is meaningless.
		return inventory.Product{}, ErrInvalidQuantity
	}

	product, err := s.ledger.Reserve(productID, quantity)
	if err != nil {
		return inventory.Product{}, err
	}

	if item, ok := cart.Item(productID); ok {
		item.Quantity += quantity
		item.Product = product
	} else {
		cart.Items[productID] = &model.Item{Product: product, Quantity: quantity}
	}

	s.dispatch(model.ItemAdded{SessionID: cart.SessionID, ProductID: productID, Quantity: quantity})
	return product, nil
}

// SetQuantity changes a reserved quantity in place. Zero is the removal
// sentinel: the item is dropped and its whole reservation returned.
func (s *cartService) SetQuantity(cart *model.Cart, productID int64, newQuantity int) error {
	if newQuantity < 0 {
		return ErrInvalidQuantity
	}

	item, ok := cart.Item(productID)
	if !ok {
		return model.ErrItemNotFound
	}

	if newQuantity == 0 {
		if err := s.ledger.Release(productID, item.Quantity); err != nil {
			return err
		}
		delete(cart.Items, productID)
		s.dispatch(model.ItemRemoved{SessionID: cart.SessionID, ProductID: productID})
		return nil
	}

	product, err := s.ledger.Adjust(productID, item.Quantity, newQuantity)
	if err != nil {
		return err
	}

	oldQuantity := item.Quantity
	item.Quantity = newQuantity
	item.Product = product

	s.dispatch(model.ItemQuantityChanged{
		SessionID:   cart.SessionID,
		ProductID:   productID,
		OldQuantity: oldQuantity,
		NewQuantity: newQuantity,
	})
	return nil
}

// Clear empties the cart. With returnStock the reservations go back to the
// ledger first; checkout passes false because the order consumes them.
// A failed release does not stop the remaining entries, and the mapping is
// emptied either way so a second Clear is a no-op.
func (s *cartService) Clear(cart *model.Cart, returnStock bool) error {
	var firstErr error
	if returnStock {
		for productID, item := range cart.Items {
			if err := s.ledger.Release(productID, item.Quantity); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"sessionID": cart.SessionID,
					"productID": productID,
				}).Error("failed to return reserved stock")
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	if len(cart.Items) > 0 {
		cart.Items = make(map[int64]*model.Item)
		s.dispatch(model.CartCleared{SessionID: cart.SessionID, StockReturned: returnStock})
	}
	return firstErr
}

func (s *cartService) Total(cart *model.Cart) int64 {
	var total int64
	for _, item := range cart.Items {
		total += item.Product.PriceCents * int64(item.Quantity)
	}
	return total
}

func (s *cartService) dispatch(event domain.Event) {
	if err := s.dispatcher.Dispatch(event); err != nil {
		log.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
	}
}
