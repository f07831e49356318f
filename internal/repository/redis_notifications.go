package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// redisNotificationStore keeps notification logs in Redis. Layout:
//
//	notify:dedup:<recipient>:<ticket>:<title>  -> notification id (SETNX)
//	notify:item:<id>                           -> JSON notification
//	notify:inbox:<recipient>                   -> list of ids, head newest
//
// SETNX makes the dedup check-and-insert atomic across processes.
type redisNotificationStore struct {
	client *redis.Client
}

// NewRedisNotificationStore builds a store over an existing client.
func NewRedisNotificationStore(client *redis.Client) NotificationStore {
	return &redisNotificationStore{client: client}
}

func (s *redisNotificationStore) Insert(ctx context.Context, n *domain.Notification) (bool, error) {
	claimed, err := s.client.SetNX(ctx, dedupKey(n), n.ID, 0).Result()
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return false, err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, itemKey(n.ID), payload, 0)
	pipe.LPush(ctx, inboxKey(n.RecipientID), n.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisNotificationStore) MarkRead(ctx context.Context, id string) error {
	raw, err := s.client.Get(ctx, itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	var n domain.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	n.Read = true
	payload, err := json.Marshal(&n)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, itemKey(id), payload, 0).Err()
}

func (s *redisNotificationStore) ListByRecipient(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	ids, err := s.client.LRange(ctx, inboxKey(recipientID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	result := make([]domain.Notification, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.Get(ctx, itemKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var n domain.Notification
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}

func dedupKey(n *domain.Notification) string {
	return fmt.Sprintf("notify:dedup:%s:%s:%s", n.RecipientID, n.TicketID, n.Title)
}

func itemKey(id string) string {
	return "notify:item:" + id
}

func inboxKey(recipientID string) string {
	return "notify:inbox:" + recipientID
}
