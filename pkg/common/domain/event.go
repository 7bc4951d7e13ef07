package domain

// Event is a domain event emitted after a successful state change.
type Event interface {
	Type() string
}

// EventDispatcher forwards domain events to interested consumers.
// Dispatch is best-effort; services log failures and move on.
type EventDispatcher interface {
	Dispatch(event Event) error
}
