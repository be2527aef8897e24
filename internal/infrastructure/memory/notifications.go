// Package memory holds an in-process NotificationRepository used for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bed-alerts/internal/domain"
)

// NotificationRepo keeps notifications in insertion order. Get returns the
// stored instance itself, so concurrent confirmations on the same id share
// one aggregate and its lock.
type NotificationRepo struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Notification
	order    []string
	bySource map[string][]string
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{
		byID:     make(map[string]*domain.Notification),
		bySource: make(map[string][]string),
	}
}

func (r *NotificationRepo) List(_ context.Context) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Notification, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

// ListBySource returns the notifications raised by source, oldest first.
func (r *NotificationRepo) ListBySource(_ context.Context, source string) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.bySource[source]
	out := make([]*domain.Notification, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	return out, nil
}

func (r *NotificationRepo) Get(_ context.Context, id string) (*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, &domain.NotificationNotFoundError{NotificationID: id}
	}
	return n, nil
}

func (r *NotificationRepo) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[n.ID()]; ok {
		return nil, fmt.Errorf("notification %s already exists: %w", n.ID(), domain.ErrConflict)
	}
	r.byID[n.ID()] = n
	r.order = append(r.order, n.ID())
	src := n.Event().Source
	r.bySource[src] = append(r.bySource[src], n.ID())
	return n, nil
}

// Update replaces the stored aggregate. Confirmations already live on the
// shared instance, so this only checks existence.
func (r *NotificationRepo) Update(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[n.ID()]; !ok {
		return nil, &domain.NotificationNotFoundError{NotificationID: n.ID()}
	}
	r.byID[n.ID()] = n
	return n, nil
}
