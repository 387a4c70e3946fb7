// Package queue defines the audit events exchanged over the message
// broker plus the publisher and the background consumer.
package queue

// AuditQueueName is the durable queue carrying user lifecycle events.
const AuditQueueName = "user.events"

// Event types published by the services.
const (
	EventUserRegistered    = "user.registered"
	EventUserCreated       = "user.created"
	EventUserStatusChanged = "user.status_changed"
	EventUserPasswordReset = "user.password_reset"
	EventUserDeleted       = "user.deleted"
	EventUserRolesChanged  = "user.roles_changed"
)

// UserEvent records one administrative or self-service mutation of a
// user account. Consumers append these to the audit log; the payload is
// self-contained so they never query the primary database.
type UserEvent struct {
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id"`
	Username   string `json:"username,omitempty"`
	ActorID    uint64 `json:"actor_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
