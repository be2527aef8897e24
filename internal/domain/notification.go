package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNoSignalSender = errors.New("signal sender is not set")
	ErrNoPublisher    = errors.New("publisher is not set")
)

// Snapshot is the plain, persistable state of a Notification.
type Snapshot struct {
	ID               string            `dynamodbav:"notification_id"`
	Bed              Bed               `dynamodbav:"bed"`
	Organization     Organization      `dynamodbav:"organization"`
	Users            []User            `dynamodbav:"users"`
	Event            LocationEvent     `dynamodbav:"event"`
	UserConfirmation *UserConfirmation `dynamodbav:"user_confirmation,omitempty"`
	AutoConfirmation *AutoConfirmation `dynamodbav:"auto_confirmation,omitempty"`
}

// NotificationView is the public representation served over HTTP and
// published downstream.
type NotificationView struct {
	ID               string                `json:"id"`
	Bed              Bed                   `json:"bed"`
	Organization     Organization          `json:"organization"`
	Users            []User                `json:"users"`
	Event            LocationEvent         `json:"event"`
	UserConfirmation *UserConfirmationView `json:"userConfirmation,omitempty"`
	AutoConfirmation *AutoConfirmationView `json:"autoConfirmation,omitempty"`
}

// confirmationState holds the two write-once confirmation slots. Every read
// and check-and-set goes through mu so that racing confirmations on the same
// Notification cannot both win.
type confirmationState struct {
	mu   sync.Mutex
	user *UserConfirmation
	auto *AutoConfirmation
}

func (s *confirmationState) snapshot() (*UserConfirmation, *AutoConfirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var uc *UserConfirmation
	if s.user != nil {
		c := *s.user
		c.ConfirmedBy = c.ConfirmedBy.Clone()
		uc = &c
	}
	var ac *AutoConfirmation
	if s.auto != nil {
		c := *s.auto
		ac = &c
	}
	return uc, ac
}

// Notification is a bed alert raised by a LocationEvent. Its identity and
// reference data never change after construction; only the two
// confirmations are set, each at most once.
type Notification struct {
	id           string
	bed          Bed
	organization Organization
	users        []User
	event        LocationEvent

	signalSender SignalSender
	publisher    Publisher
	now          func() time.Time

	confirmations confirmationState
}

// NewNotification builds a Notification from persisted or freshly raised
// state. Confirmations present in s are restored as-is.
func NewNotification(s Snapshot, c Collaborators) (*Notification, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("notification id is required: %w", ErrBadRequest)
	}
	if s.Event.Source == "" {
		return nil, fmt.Errorf("notification event source is required: %w", ErrBadRequest)
	}
	if s.AutoConfirmation != nil && !s.AutoConfirmation.ConfirmedBy.SameSource(s.Event) {
		return nil, &EventSourceMismatchError{Expected: s.Event.Source, Actual: s.AutoConfirmation.ConfirmedBy.Source}
	}

	now := c.Clock
	if now == nil {
		now = time.Now
	}
	n := &Notification{
		id:           s.ID,
		bed:          s.Bed,
		organization: s.Organization,
		users:        cloneUsers(s.Users),
		event:        s.Event,
		signalSender: c.SignalSender,
		publisher:    c.Publisher,
		now:          now,
	}
	if s.UserConfirmation != nil {
		uc := *s.UserConfirmation
		uc.ConfirmedBy = uc.ConfirmedBy.Clone()
		n.confirmations.user = &uc
	}
	if s.AutoConfirmation != nil {
		ac := *s.AutoConfirmation
		n.confirmations.auto = &ac
	}
	return n, nil
}

func (n *Notification) ID() string                 { return n.id }
func (n *Notification) Bed() Bed                   { return n.bed }
func (n *Notification) Organization() Organization { return n.organization }
func (n *Notification) Event() LocationEvent       { return n.event }

// Users returns a copy of the recipients; the set is fixed at construction.
func (n *Notification) Users() []User { return cloneUsers(n.users) }

func (n *Notification) UserConfirmation() (UserConfirmation, bool) {
	uc, _ := n.confirmations.snapshot()
	if uc == nil {
		return UserConfirmation{}, false
	}
	return *uc, true
}

func (n *Notification) AutoConfirmation() (AutoConfirmation, bool) {
	_, ac := n.confirmations.snapshot()
	if ac == nil {
		return AutoConfirmation{}, false
	}
	return *ac, true
}

// IsConfirmed reports whether at least one confirmation exists.
func (n *Notification) IsConfirmed() bool {
	uc, ac := n.confirmations.snapshot()
	return uc != nil || ac != nil
}

// Snapshot returns the persistable state of n.
func (n *Notification) Snapshot() Snapshot {
	uc, ac := n.confirmations.snapshot()
	return Snapshot{
		ID:               n.id,
		Bed:              n.bed,
		Organization:     n.organization,
		Users:            cloneUsers(n.users),
		Event:            n.event,
		UserConfirmation: uc,
		AutoConfirmation: ac,
	}
}

// SignalTargets returns every enabled device of every user who has the bed's
// ward enabled, in user order then device order. It is empty when alerting
// is disabled for the organization or the bed.
func (n *Notification) SignalTargets() []UserDevice {
	if !n.organization.NotificationsEnabled || !n.bed.NotificationsEnabled {
		return nil
	}
	var targets []UserDevice
	for _, u := range n.users {
		if !u.HasWard(n.bed.Ward) {
			continue
		}
		for _, d := range u.Devices {
			if d.NotificationsEnabled {
				targets = append(targets, d)
			}
		}
	}
	return targets
}

// SignalMessage is the text pushed to caregivers' devices.
func (n *Notification) SignalMessage() string {
	return fmt.Sprintf("Notification for bed %s in %s", n.bed.Name, n.bed.Ward)
}

// SendSignals pushes the alert to all eligible devices in a single call to
// the signal sender. Nothing is sent when there are no eligible devices.
func (n *Notification) SendSignals(ctx context.Context) error {
	targets := n.SignalTargets()
	if len(targets) == 0 {
		return nil
	}
	if n.signalSender == nil {
		return ErrNoSignalSender
	}
	if err := n.signalSender.SendSignal(ctx, n.SignalMessage(), targets); err != nil {
		return fmt.Errorf("send signal for notification %s: %w", n.id, err)
	}
	return nil
}

// Publish sends the public view of n to the publisher exactly once.
func (n *Notification) Publish(ctx context.Context) error {
	if n.publisher == nil {
		return ErrNoPublisher
	}
	payload, err := json.Marshal(n.View())
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.id, err)
	}
	if err := n.publisher.Publish(ctx, payload); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.id, err)
	}
	return nil
}

// ConfirmForUser records the acknowledgement of one of the notification's
// users. A second user confirmation is rejected.
func (n *Notification) ConfirmForUser(userID string) (UserConfirmation, error) {
	user, ok := n.findUser(userID)
	if !ok {
		return UserConfirmation{}, &UserNotFoundError{UserID: userID}
	}

	n.confirmations.mu.Lock()
	defer n.confirmations.mu.Unlock()

	if n.confirmations.user != nil {
		return UserConfirmation{}, &NotificationAlreadyConfirmedError{NotificationID: n.id}
	}
	uc := UserConfirmation{ConfirmedAt: n.now(), ConfirmedBy: user}
	n.confirmations.user = &uc

	out := uc
	out.ConfirmedBy = out.ConfirmedBy.Clone()
	return out, nil
}

// ConfirmForEvent auto-confirms the notification with a corroborating event
// from the originating source. The first matching event wins; later ones
// return the stored confirmation unchanged.
func (n *Notification) ConfirmForEvent(event LocationEvent) (AutoConfirmation, error) {
	ac, _, err := n.TryConfirmForEvent(event)
	return ac, err
}

// TryConfirmForEvent is ConfirmForEvent that also reports whether this call
// created the confirmation.
func (n *Notification) TryConfirmForEvent(event LocationEvent) (AutoConfirmation, bool, error) {
	if !event.SameSource(n.event) {
		return AutoConfirmation{}, false, &EventSourceMismatchError{Expected: n.event.Source, Actual: event.Source}
	}

	n.confirmations.mu.Lock()
	defer n.confirmations.mu.Unlock()

	if n.confirmations.auto != nil {
		return *n.confirmations.auto, false, nil
	}
	ac := AutoConfirmation{ConfirmedAt: n.now(), ConfirmedBy: event}
	n.confirmations.auto = &ac
	return ac, true, nil
}

// View returns the public representation of n.
func (n *Notification) View() NotificationView {
	uc, ac := n.confirmations.snapshot()
	users := make([]User, 0, len(n.users))
	for _, u := range n.users {
		users = append(users, u.Clone().jsonReady())
	}
	v := NotificationView{
		ID:           n.id,
		Bed:          n.bed,
		Organization: n.organization,
		Users:        users,
		Event:        n.event,
	}
	if uc != nil {
		ucv := uc.View()
		v.UserConfirmation = &ucv
	}
	if ac != nil {
		acv := ac.View()
		v.AutoConfirmation = &acv
	}
	return v
}

func (n *Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.View())
}

func (n *Notification) findUser(userID string) (User, bool) {
	for _, u := range n.users {
		if u.ID == userID {
			return u.Clone(), true
		}
	}
	return User{}, false
}
