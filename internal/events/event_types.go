package events

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventCommentAdded        EventType = "comment_added"
	EventTicketOverdue       EventType = "ticket_overdue"
)

// Event represents a domain event emitted by the lifecycle or the
// staleness monitor.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id,omitempty"` // empty for monitor-raised events
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Payloads carry the identities the notification fan-out needs so
// handlers never re-fetch ticket state.

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title     string                `json:"title"`
	Priority  domain.TicketPriority `json:"priority"`
	CreatorID string                `json:"creator_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	CreatorID string              `json:"creator_id"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string  `json:"comment_id"`
	AuthorID    string  `json:"author_id"`
	CreatorID   string  `json:"creator_id"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	BodyPreview string  `json:"body_preview"`
}

// TicketOverduePayload payload.
type TicketOverduePayload struct {
	Title      string        `json:"title"`
	AssigneeID *string       `json:"assignee_id,omitempty"`
	OpenFor    time.Duration `json:"open_for"`
}
