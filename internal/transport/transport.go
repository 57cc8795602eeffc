// Package transport connects the engine to the remote messaging service.
package transport

import "context"

// Event is one inbound message from a remote user.
type Event struct {
	ID     string
	UserID int64
	Text   string
}

// Keyboard selects a fixed named button layout sent along with a message.
type Keyboard string

const (
	KeyboardNone  Keyboard = ""
	KeyboardMenu  Keyboard = "menu"
	KeyboardEdit  Keyboard = "edit"
	KeyboardYesNo Keyboard = "yesno"
)

// Poller receives inbound events, blocking until at least one arrives.
type Poller interface {
	Poll(ctx context.Context) ([]Event, error)
}

// Messenger delivers text, keyboards and documents to a remote user.
type Messenger interface {
	SendText(ctx context.Context, userID int64, text string, kb Keyboard) error
	SendDocument(ctx context.Context, userID int64, path string) error
}
