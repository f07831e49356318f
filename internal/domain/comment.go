package domain

import "time"

// Comment is an append-only entry in a ticket thread. Never mutated or
// deleted once created.
type Comment struct {
	ID          string
	TicketID    string
	AuthorID    string
	Body        string
	Attachments []string
	IsAssist    bool // drafted by the AI collaborator, posted by the author
	CreatedAt   time.Time
}
