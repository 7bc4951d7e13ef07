package service

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	cartservice "storefront/pkg/cart/domain/service"
	"storefront/pkg/common/domain"
	session "storefront/pkg/session/domain/model"
	"storefront/pkg/storefront/domain/model"
)

const (
	closedNotice = "===================\n\nORDER INTAKE IS CLOSED\n\n===================\n\nYou have been returned to the start screen"
	openedNotice = "===================\n\nORDER INTAKE IS OPEN!\n\n==================="

	// How many sessions a lifecycle broadcast touches at once. Ledger
	// releases still serialize behind the inventory lock.
	broadcastConcurrency = 8
)

// LifecycleService owns the global open/closed switch. Close is destructive
// to in-progress carts: every reservation is returned to the ledger and the
// sessions are told to start over. Open does not restore anything.
type LifecycleService interface {
	IsOpen() bool
	Close(actor string) error
	Open(actor string) error
}

func NewLifecycleService(
	roster *model.Roster,
	registry *session.Registry,
	carts cartservice.CartService,
	messenger model.Messenger,
	dispatcher domain.EventDispatcher,
) LifecycleService {
	return &lifecycleService{
		state:      model.Open,
		roster:     roster,
		registry:   registry,
		carts:      carts,
		messenger:  messenger,
		dispatcher: dispatcher,
	}
}

type lifecycleService struct {
	mu         sync.Mutex
	state      model.State
	roster     *model.Roster
	registry   *session.Registry
	carts      cartservice.CartService
	messenger  model.Messenger
	dispatcher domain.EventDispatcher
}

func (s *lifecycleService) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == model.Open
}

func (s *lifecycleService) Close(actor string) error {
	if !s.roster.IsSuperAdmin(actor) {
		return model.ErrNotAdmin
	}

	s.mu.Lock()
	s.state = model.Closed
	s.mu.Unlock()

	sessions := s.registry.All()
	var released int64
	var releasedMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(broadcastConcurrency)
	for _, sess := range sessions {
		sess := sess
		g.Go(func() error {
			if s.closeSession(sess) {
				releasedMu.Lock()
				released++
				releasedMu.Unlock()
			}
			// One session failing must not stop the rest.
			return nil
		})
	}
	_ = g.Wait()

	s.dispatch(model.StorefrontClosed{Sessions: len(sessions), CartsReleased: int(released)})
	return nil
}

// closeSession releases one session's cart back to the ledger, wipes the
// session's message history and leaves the closed notice as its only
// retained message. Reports whether a non-empty cart was released.
func (s *lifecycleService) closeSession(sess *session.Session) bool {
	sess.Lock()
	defer sess.Unlock()

	hadItems := !sess.Cart.IsEmpty()
	if err := s.carts.Clear(sess.Cart, true); err != nil {
		log.WithError(err).WithField("sessionID", sess.ID).
			Error("failed to return a cart during storefront close")
	}
	sess.CancelInput()
	sess.ResetDelivery()

	for _, handle := range sess.Messages {
		if err := s.messenger.DeleteMessage(sess.ID, handle); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"sessionID": sess.ID,
				"handle":    handle,
			}).Warn("failed to delete an outbound message")
		}
	}

	handle, err := s.messenger.Notify(sess.ID, closedNotice, nil)
	if err != nil {
		log.WithError(err).WithField("sessionID", sess.ID).
			Warn("failed to deliver the closed notice")
		sess.ClearMessages()
		return hadItems
	}
	sess.RetainOnly(handle)
	return hadItems
}

func (s *lifecycleService) Open(actor string) error {
	if !s.roster.IsSuperAdmin(actor) {
		return model.ErrNotAdmin
	}

	s.mu.Lock()
	s.state = model.Open
	s.mu.Unlock()

	sessions := s.registry.All()

	var g errgroup.Group
	g.SetLimit(broadcastConcurrency)
	for _, sess := range sessions {
		sess := sess
		g.Go(func() error {
			sess.Lock()
			defer sess.Unlock()

			handle, err := s.messenger.Notify(sess.ID, openedNotice, nil)
			if err != nil {
				log.WithError(err).WithField("sessionID", sess.ID).
					Warn("failed to deliver the opened notice")
				return nil
			}
			sess.RecordMessage(handle)
			return nil
		})
	}
	_ = g.Wait()

	s.dispatch(model.StorefrontOpened{Sessions: len(sessions)})
	return nil
}

func (s *lifecycleService) dispatch(event domain.Event) {
	if err := s.dispatcher.Dispatch(event); err != nil {
		log.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
	}
}
