package domain

import (
	"encoding/json"
	"time"
)

// isoLayout matches the ISO-8601 form consumers already parse:
// millisecond precision, always UTC with a literal Z.
const isoLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t in the layout used for every confirmedAt value.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// UserConfirmation records that a caregiver acknowledged a notification.
type UserConfirmation struct {
	ConfirmedAt time.Time `dynamodbav:"confirmed_at"`
	ConfirmedBy User      `dynamodbav:"confirmed_by"`
}

// AutoConfirmation records that a corroborating event from the originating
// source acknowledged a notification.
type AutoConfirmation struct {
	ConfirmedAt time.Time     `dynamodbav:"confirmed_at"`
	ConfirmedBy LocationEvent `dynamodbav:"confirmed_by"`
}

type UserConfirmationView struct {
	ConfirmedAt string `json:"confirmedAt"`
	ConfirmedBy User   `json:"confirmedBy"`
}

type AutoConfirmationView struct {
	ConfirmedAt string        `json:"confirmedAt"`
	ConfirmedBy LocationEvent `json:"confirmedBy"`
}

func (c UserConfirmation) View() UserConfirmationView {
	return UserConfirmationView{ConfirmedAt: FormatISO(c.ConfirmedAt), ConfirmedBy: c.ConfirmedBy.jsonReady()}
}

func (c UserConfirmation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.View())
}

func (c AutoConfirmation) View() AutoConfirmationView {
	return AutoConfirmationView{ConfirmedAt: FormatISO(c.ConfirmedAt), ConfirmedBy: c.ConfirmedBy}
}

func (c AutoConfirmation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.View())
}
