package http

import (
	"github.com/bed-alerts/internal/application/notification"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Notifications notification.Service
}
