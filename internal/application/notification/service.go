package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/bed-alerts/internal/domain"
	"github.com/bed-alerts/internal/logger"
	"github.com/bed-alerts/internal/pkg/id"
)

type Service interface {
	List(ctx context.Context) ([]*domain.Notification, error)
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	Raise(ctx context.Context, bedID string, event domain.LocationEvent) (*domain.Notification, error)
	ConfirmForUser(ctx context.Context, notificationID, userID string) (domain.UserConfirmation, error)
	ConfirmForEvent(ctx context.Context, notificationID string, event domain.LocationEvent) (domain.AutoConfirmation, error)
	HandleLocationEvent(ctx context.Context, event domain.LocationEvent) (int, error)
}

type directory interface {
	Lookup(bedID string) (domain.Bed, domain.Organization, []domain.User, error)
}

type archiver interface {
	Archive(ctx context.Context, n *domain.Notification) (string, error)
}

// sourceLister is implemented by repositories that index notifications by
// their originating event source.
type sourceLister interface {
	ListBySource(ctx context.Context, source string) ([]*domain.Notification, error)
}

type service struct {
	repo      domain.NotificationRepository
	directory directory
	archive   archiver
	collab    domain.Collaborators
	newID     func() string
}

// ServiceDeps wires the service. Archive is optional; NewID defaults to ULIDs.
type ServiceDeps struct {
	Repo          domain.NotificationRepository
	Directory     directory
	Archive       archiver
	Collaborators domain.Collaborators
	NewID         func() string
}

func NewService(deps ServiceDeps) Service {
	newID := deps.NewID
	if newID == nil {
		newID = id.New
	}
	return &service{
		repo:      deps.Repo,
		directory: deps.Directory,
		archive:   deps.Archive,
		collab:    deps.Collaborators,
		newID:     newID,
	}
}

func (s *service) List(ctx context.Context) ([]*domain.Notification, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	return s.repo.Get(ctx, notificationID)
}

// Raise creates a notification for bedID and alerts its users. Once the
// notification is stored, signal and publish failures are only logged.
func (s *service) Raise(ctx context.Context, bedID string, event domain.LocationEvent) (*domain.Notification, error) {
	bed, org, users, err := s.directory.Lookup(bedID)
	if err != nil {
		return nil, err
	}

	n, err := domain.NewNotification(domain.Snapshot{
		ID:           s.newID(),
		Bed:          bed,
		Organization: org,
		Users:        users,
		Event:        event,
	}, s.collab)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	ctx = logger.WithKV(ctx, "notification_id", n.ID())
	logger.InfoKV(ctx, "notification raised", "bed_id", bed.ID, "source", event.Source)
	if err := n.SendSignals(ctx); err != nil {
		logger.ErrorKV(ctx, "send signals failed", "error", err)
	}
	s.publish(ctx, n)
	return n, nil
}

func (s *service) ConfirmForUser(ctx context.Context, notificationID, userID string) (domain.UserConfirmation, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return domain.UserConfirmation{}, err
	}
	uc, err := n.ConfirmForUser(userID)
	if err != nil {
		return domain.UserConfirmation{}, err
	}
	if _, err := s.repo.Update(ctx, n); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.UserConfirmation{}, &domain.NotificationAlreadyConfirmedError{NotificationID: notificationID}
		}
		return domain.UserConfirmation{}, fmt.Errorf("store user confirmation: %w", err)
	}

	ctx = logger.WithKV(ctx, "notification_id", notificationID)
	logger.InfoKV(ctx, "notification confirmed by user", "user_id", userID)
	s.afterConfirm(ctx, n)
	return uc, nil
}

func (s *service) ConfirmForEvent(ctx context.Context, notificationID string, event domain.LocationEvent) (domain.AutoConfirmation, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return domain.AutoConfirmation{}, err
	}
	return s.confirmForEvent(ctx, n, event)
}

// HandleLocationEvent auto-confirms every unconfirmed notification raised by
// the event's source and returns how many were confirmed. It keeps going
// past individual failures and returns them joined.
func (s *service) HandleLocationEvent(ctx context.Context, event domain.LocationEvent) (int, error) {
	candidates, err := s.bySource(ctx, event.Source)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	var errs []error
	for _, n := range candidates {
		if n.IsConfirmed() {
			continue
		}
		if _, err := s.confirmForEvent(ctx, n, event); err != nil {
			errs = append(errs, fmt.Errorf("notification %s: %w", n.ID(), err))
			continue
		}
		confirmed++
	}
	return confirmed, errors.Join(errs...)
}

// confirmForEvent stores and announces a new auto confirmation. A repeat
// returns the stored confirmation without writing. When another process
// stored one first, that one is returned.
func (s *service) confirmForEvent(ctx context.Context, n *domain.Notification, event domain.LocationEvent) (domain.AutoConfirmation, error) {
	ac, created, err := n.TryConfirmForEvent(event)
	if err != nil || !created {
		return ac, err
	}

	ctx = logger.WithKV(ctx, "notification_id", n.ID())
	if _, err := s.repo.Update(ctx, n); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return domain.AutoConfirmation{}, fmt.Errorf("store auto confirmation: %w", err)
		}
		stored, getErr := s.repo.Get(ctx, n.ID())
		if getErr != nil {
			return domain.AutoConfirmation{}, getErr
		}
		if existing, ok := stored.AutoConfirmation(); ok {
			logger.DebugKV(ctx, "auto confirmation stored concurrently", "source", event.Source)
			return existing, nil
		}
		return domain.AutoConfirmation{}, err
	}

	logger.InfoKV(ctx, "notification auto-confirmed", "source", event.Source)
	s.afterConfirm(ctx, n)
	return ac, nil
}

func (s *service) bySource(ctx context.Context, source string) ([]*domain.Notification, error) {
	if sl, ok := s.repo.(sourceLister); ok {
		return sl.ListBySource(ctx, source)
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	matching := make([]*domain.Notification, 0, len(all))
	for _, n := range all {
		if n.Event().Source == source {
			matching = append(matching, n)
		}
	}
	return matching, nil
}

func (s *service) afterConfirm(ctx context.Context, n *domain.Notification) {
	s.publish(ctx, n)
	if s.archive == nil || !n.IsConfirmed() {
		return
	}
	if key, err := s.archive.Archive(ctx, n); err != nil {
		logger.ErrorKV(ctx, "archive failed", "error", err)
	} else {
		logger.DebugKV(ctx, "notification archived", "key", key)
	}
}

func (s *service) publish(ctx context.Context, n *domain.Notification) {
	if err := n.Publish(ctx); err != nil {
		logger.ErrorKV(ctx, "publish failed", "error", err)
	}
}
