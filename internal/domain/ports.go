package domain

import (
	"context"
	"time"
)

// SignalSender delivers one message to a batch of devices.
type SignalSender interface {
	SendSignal(ctx context.Context, message string, targets []UserDevice) error
}

// Publisher publishes a serialized notification to a fixed topic.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// NotificationRepository persists Notification aggregates.
// Get returns a *NotificationNotFoundError when the id is unknown.
type NotificationRepository interface {
	List(ctx context.Context) ([]*Notification, error)
	Get(ctx context.Context, id string) (*Notification, error)
	Create(ctx context.Context, n *Notification) (*Notification, error)
	Update(ctx context.Context, n *Notification) (*Notification, error)
}

// Collaborators are the injected capabilities a Notification calls out to.
// Clock is optional and defaults to time.Now.
type Collaborators struct {
	SignalSender SignalSender
	Publisher    Publisher
	Clock        func() time.Time
}
