package models

// User event operations.
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// UserEvent is published to Kafka after a user is created, updated or deleted.
// It never carries the password.
type UserEvent struct {
	EventID   string `json:"event_id"`  // Unique event identifier
	Timestamp int64  `json:"timestamp"` // Unix timestamp (seconds) of the change
	Operation string `json:"operation"` // One of user.created, user.updated, user.deleted
	UserID    int64  `json:"user_id"`   // Affected user
	Name      string `json:"name"`      // Login name at the time of the change
}
