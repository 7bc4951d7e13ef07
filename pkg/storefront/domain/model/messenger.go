package model

import "github.com/google/uuid"

// Button is one inline keyboard button; Token comes back verbatim through
// the button event entry point when pressed.
type Button struct {
	Label string
	Token string
}

// Keyboard is rendered as rows of buttons under an outbound message.
type Keyboard [][]Button

// Messenger is the chat transport the core talks through. Delivery is
// best-effort from the core's point of view; DeleteMessage in particular
// may fail for messages the transport no longer knows.
type Messenger interface {
	Notify(sessionID, text string, keyboard Keyboard) (uuid.UUID, error)
	DeleteMessage(sessionID string, handle uuid.UUID) error
	SendDocument(sessionID, fileHandle string) error
}
