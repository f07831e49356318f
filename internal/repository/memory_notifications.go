package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// memoryNotificationStore keeps per-recipient logs in memory. The dedup
// scan and the insert happen under one lock, so a concurrent identical
// raise can never slip through.
type memoryNotificationStore struct {
	mu       sync.Mutex
	inboxes  map[string][]domain.Notification // head is newest
	location map[string]inboxRef              // notification id -> slot
}

type inboxRef struct {
	recipientID string
	index       int
}

// NewMemoryNotificationStore builds the in-memory notification store.
func NewMemoryNotificationStore() NotificationStore {
	return &memoryNotificationStore{
		inboxes:  make(map[string][]domain.Notification),
		location: make(map[string]inboxRef),
	}
}

func (s *memoryNotificationStore) Insert(ctx context.Context, n *domain.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inbox := s.inboxes[n.RecipientID]
	for _, existing := range inbox {
		// The read flag is ignored: an acknowledged notification still
		// suppresses a same-titled re-raise.
		if existing.TicketID == n.TicketID && existing.Title == n.Title {
			return false, nil
		}
	}

	s.inboxes[n.RecipientID] = append([]domain.Notification{*n}, inbox...)
	for i, entry := range s.inboxes[n.RecipientID] {
		s.location[entry.ID] = inboxRef{recipientID: n.RecipientID, index: i}
	}
	return true, nil
}

func (s *memoryNotificationStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.location[id]
	if !ok {
		return nil
	}
	s.inboxes[ref.recipientID][ref.index].Read = true
	return nil
}

func (s *memoryNotificationStore) ListByRecipient(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification{}, s.inboxes[recipientID]...), nil
}
