package domain

// LocationEventRequest is the wire form of a LocationEvent in request bodies.
type LocationEventRequest struct {
	Source    string `json:"source" validate:"required"`
	Timestamp *int64 `json:"timestamp" validate:"required"`
}

func (r LocationEventRequest) Event() LocationEvent {
	var ts int64
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return LocationEvent{Source: r.Source, Timestamp: ts}
}

type RaiseNotificationRequest struct {
	BedID string                `json:"bedId" validate:"required"`
	Event *LocationEventRequest `json:"event" validate:"required"`
}

type ConfirmForUserRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type ConfirmForEventRequest struct {
	Event *LocationEventRequest `json:"event" validate:"required"`
}
