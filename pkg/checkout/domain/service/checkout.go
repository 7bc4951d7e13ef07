package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	cartservice "storefront/pkg/cart/domain/service"
	"storefront/pkg/checkout/domain/model"
	"storefront/pkg/common/domain"
	session "storefront/pkg/session/domain/model"
	storefront "storefront/pkg/storefront/domain/model"
	storefrontservice "storefront/pkg/storefront/domain/service"
)

// CheckoutService converts a cart's reservations into a permanent order.
// Stock is never re-validated here: it was committed when the cart claimed
// it, so finalization cannot fail for stock reasons.
type CheckoutService interface {
	// SelectDelivery records the method. Pickup finalizes immediately and
	// returns the summary; Pavilion arms pavilion-number entry and returns
	// nil until CapturePavilion completes the flow.
	SelectDelivery(sess *session.Session, method session.DeliveryMethod) (*model.OrderSummary, error)
	CapturePavilion(sess *session.Session, pavilionNumber string) (*model.OrderSummary, error)
	Finalize(sess *session.Session) (*model.OrderSummary, error)
}

func NewCheckoutService(
	carts cartservice.CartService,
	roster storefrontservice.RosterService,
	messenger storefront.Messenger,
	dispatcher domain.EventDispatcher,
) CheckoutService {
	return &checkoutService{
		carts:      carts,
		roster:     roster,
		messenger:  messenger,
		dispatcher: dispatcher,
	}
}

type checkoutService struct {
	carts      cartservice.CartService
	roster     storefrontservice.RosterService
	messenger  storefront.Messenger
	dispatcher domain.EventDispatcher
}

func (s *checkoutService) SelectDelivery(sess *session.Session, method session.DeliveryMethod) (*model.OrderSummary, error) {
	switch method {
	case session.DeliveryPavilion:
		sess.Delivery = session.DeliveryPavilion
		sess.AwaitPavilionNumber()
		return nil, nil
	case session.DeliveryPickup:
		sess.Delivery = session.DeliveryPickup
		return s.Finalize(sess)
	default:
		return nil, model.ErrIncompleteOrder
	}
}

func (s *checkoutService) CapturePavilion(sess *session.Session, pavilionNumber string) (*model.OrderSummary, error) {
	sess.PavilionNumber = pavilionNumber
	sess.CancelInput()
	return s.Finalize(sess)
}

func (s *checkoutService) Finalize(sess *session.Session) (*model.OrderSummary, error) {
	if sess.Delivery == session.DeliveryUnset {
		return nil, model.ErrIncompleteOrder
	}
	if sess.Cart.IsEmpty() {
		return nil, model.ErrEmptyOrder
	}

	summary := &model.OrderSummary{
		OrderID:    uuid.New(),
		SessionID:  sess.ID,
		TotalCents: s.carts.Total(sess.Cart),
		Delivery:   sess.Delivery,
		Pavilion:   sess.PavilionNumber,
		PlacedAt:   time.Now().UTC(),
	}
	for _, item := range sess.Cart.Items {
		summary.Lines = append(summary.Lines, model.Line{
			Name:          item.Product.Name,
			Quantity:      item.Quantity,
			SubtotalCents: item.Product.PriceCents * int64(item.Quantity),
		})
	}
	sort.Slice(summary.Lines, func(i, j int) bool {
		return summary.Lines[i].Name < summary.Lines[j].Name
	})

	text := summary.Render()
	s.notify(sess, "Thank you for your order!")
	s.notify(sess, text)

	adminCopy := fmt.Sprintf("New order from session %s:\n%s", sess.ID, text)
	for _, admin := range s.roster.Admins() {
		if _, err := s.messenger.Notify(admin, adminCopy, nil); err != nil {
			log.WithError(err).WithField("admin", admin).
				Warn("failed to deliver the order copy to an administrator")
		}
	}

	// The order consumes the reservations; nothing goes back to the ledger.
	if err := s.carts.Clear(sess.Cart, false); err != nil {
		log.WithError(err).WithField("sessionID", sess.ID).
			Error("failed to clear a cart after finalization")
	}
	sess.ResetDelivery()
	sess.CancelInput()

	s.dispatch(model.OrderFinalized{
		OrderID:    summary.OrderID,
		SessionID:  summary.SessionID,
		TotalCents: summary.TotalCents,
		Delivery:   summary.Delivery,
	})
	return summary, nil
}

func (s *checkoutService) notify(sess *session.Session, text string) {
	handle, err := s.messenger.Notify(sess.ID, text, nil)
	if err != nil {
		log.WithError(err).WithField("sessionID", sess.ID).
			Warn("failed to deliver an order message")
		return
	}
	sess.RecordMessage(handle)
}

func (s *checkoutService) dispatch(event domain.Event) {
	if err := s.dispatcher.Dispatch(event); err != nil {
		log.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
	}
}
