package dynamo

// DynamoDB attribute names used in key, condition and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldNotificationID   = "notification_id"
	fieldUserConfirmation = "user_confirmation"
	fieldAutoConfirmation = "auto_confirmation"
	fieldConfirmedAt      = "confirmed_at"
	fieldCreatedAt        = "created_at"
	fieldUpdatedAt        = "updated_at"
	fieldEventSource      = "event_source"
)
