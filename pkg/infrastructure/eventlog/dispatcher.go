package eventlog

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
)

// Dispatcher writes domain events to the structured log. It stands in for
// a message broker; consumers tail the log stream.
type Dispatcher struct{}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Dispatch(event domain.Event) error {
	log.WithFields(log.Fields{
		"event":   event.Type(),
		"payload": fmt.Sprintf("%+v", event),
	}).Info("domain event")
	return nil
}
