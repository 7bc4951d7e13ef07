package service

import (
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/storefront/domain/model"
)

// RosterService mutates the administrator roster. Adding requires any
// admin; removing is reserved to the super-admin, who is itself immutable.
type RosterService interface {
	IsAdmin(identity string) bool
	IsSuperAdmin(identity string) bool
	Admins() []string
	Removable() []string
	AddAdmin(actor, identity string) error
	RemoveAdmin(actor, identity string) error
}

func NewRosterService(roster *model.Roster, dispatcher domain.EventDispatcher) RosterService {
	return &rosterService{roster: roster, dispatcher: dispatcher}
}

type rosterService struct {
	roster     *model.Roster
	dispatcher domain.EventDispatcher
}

func (s *rosterService) IsAdmin(identity string) bool {
	return s.roster.IsAdmin(identity)
}

func (s *rosterService) IsSuperAdmin(identity string) bool {
	return s.roster.IsSuperAdmin(identity)
}

func (s *rosterService) Admins() []string {
	return s.roster.All()
}

func (s *rosterService) Removable() []string {
	return s.roster.Removable()
}

func (s *rosterService) AddAdmin(actor, identity string) error {
	if !s.roster.IsAdmin(actor) {
		return model.ErrNotAdmin
	}
	if err := s.roster.Add(identity); err != nil {
		return err
	}
	s.dispatch(model.AdminAdded{Identity: identity})
	return nil
}

func (s *rosterService) RemoveAdmin(actor, identity string) error {
	if !s.roster.IsSuperAdmin(actor) {
		return model.ErrNotAdmin
	}
	if err := s.roster.Remove(identity); err != nil {
		return err
	}
	s.dispatch(model.AdminRemoved{Identity: identity})
	return nil
}

func (s *rosterService) dispatch(event domain.Event) {
	if err := s.dispatcher.Dispatch(event); err != nil {
		log.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
	}
}
