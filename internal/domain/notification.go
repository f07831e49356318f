package domain

import "time"

// NotificationKind grades the severity of a notification.
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindWarning NotificationKind = "warning"
	KindUrgent  NotificationKind = "urgent"
)

// Notification is a per-user alert entry. Only the Read flag changes
// after creation. At most one notification may exist per (recipient,
// ticket id, title) triple, read or not.
type Notification struct {
	ID          string
	RecipientID string
	Title       string
	Message     string
	Read        bool
	TicketID    string // optional originating ticket
	Kind        NotificationKind
	CreatedAt   time.Time
}
