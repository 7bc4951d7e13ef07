package model

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotAdmin            = errors.New("identity is not an administrator")
	ErrAlreadyAdmin        = errors.New("identity is already an administrator")
	ErrAdminNotFound       = errors.New("administrator not found")
	ErrSuperAdminImmutable = errors.New("the super-admin cannot be removed")
)

// Roster is the mutable set of authorized administrator identities. It is
// seeded with one super-admin that gates lifecycle and roster mutations
// and can never be removed.
type Roster struct {
	mu     sync.Mutex
	super  string
	admins map[string]struct{}
}

func NewRoster(superAdmin string) *Roster {
	return &Roster{
		super:  superAdmin,
		admins: map[string]struct{}{superAdmin: {}},
	}
}

func (r *Roster) SuperAdmin() string {
	return r.super
}

func (r *Roster) IsSuperAdmin(identity string) bool {
	return identity == r.super
}

func (r *Roster) IsAdmin(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.admins[identity]
	return ok
}

func (r *Roster) Add(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[identity]; ok {
		return ErrAlreadyAdmin
	}
	r.admins[identity] = struct{}{}
	return nil
}

func (r *Roster) Remove(identity string) error {
	if identity == r.super {
		return ErrSuperAdminImmutable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[identity]; !ok {
		return ErrAdminNotFound
	}
	delete(r.admins, identity)
	return nil
}

// All lists every administrator, super-admin included.
func (r *Roster) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	admins := make([]string, 0, len(r.admins))
	for id := range r.admins {
		admins = append(admins, id)
	}
	sort.Strings(admins)
	return admins
}

// Removable lists the administrators that may be removed, which is
// everyone but the super-admin.
func (r *Roster) Removable() []string {
	var removable []string
	for _, id := range r.All() {
		if id != r.super {
			removable = append(removable, id)
		}
	}
	return removable
}
