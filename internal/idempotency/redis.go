package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/orders-service/internal/apperr"
)

// RedisStore implements Store on Redis. Expiry is left to key TTLs: an
// IN_PROGRESS key lives until the reservation deadline, a COMPLETED key for
// the retention window.
type RedisStore struct {
	client    *redis.Client
	keyspace  string
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewRedisStore returns a RedisStore writing keys as "<keyspace>:<key>".
func NewRedisStore(client *redis.Client, keyspace string, ttlWindow time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		keyspace:  keyspace,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

func (s *RedisStore) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", s.keyspace, key)
}

// Begin reserves key with SET NX.
func (s *RedisStore) Begin(ctx context.Context, key string) (Result, error) {
	now := s.nowFunc()
	deadline := inProgressDeadline(ctx, now, s.ttlWindow)
	rec := IdempotencyRecord{
		IdempotencyKey:      key,
		Status:              StatusInProgress,
		CreatedAt:           now,
		UpdatedAt:           now,
		ExpiresAt:           now.Add(s.ttlWindow).Unix(),
		InProgressExpiresAt: deadline.UnixMilli(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return Result{}, fmt.Errorf("marshal record: %w", err)
	}

	ttl := deadline.Sub(now)
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	rk := s.redisKey(key)
	reserved, err := s.client.SetNX(ctx, rk, payload, ttl).Result()
	if err != nil {
		return Result{}, apperr.NewStoreError(s.keyspace, "setnx", err)
	}
	if reserved {
		return Result{Outcome: Proceed}, nil
	}

	existing, err := getRecord(ctx, s.client, rk)
	if err != nil {
		return Result{}, apperr.NewStoreError(s.keyspace, "get", err)
	}
	return classify(existing), nil
}

// Complete swaps the IN_PROGRESS value for a COMPLETED one under WATCH, so a
// reservation that expired and was taken by another request is not clobbered.
func (s *RedisStore) Complete(ctx context.Context, key string, responseBody []byte) error {
	rk := s.redisKey(key)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := getRecord(ctx, tx, rk)
		if err != nil {
			return err
		}
		if rec == nil || rec.Status != StatusInProgress {
			return ErrReservationLost
		}

		now := s.nowFunc()
		rec.Status = StatusCompleted
		rec.ResponseBody = string(responseBody)
		rec.UpdatedAt = now
		rec.ExpiresAt = now.Add(s.ttlWindow).Unix()
		rec.InProgressExpiresAt = 0
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, rk, payload, s.ttlWindow)
			return nil
		})
		return err
	}, rk)
	if err != nil {
		return apperr.NewStoreError(s.keyspace, "complete", err)
	}
	return nil
}

// Release deletes the key if it still holds an IN_PROGRESS reservation.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	rk := s.redisKey(key)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := getRecord(ctx, tx, rk)
		if err != nil {
			return err
		}
		if rec == nil || rec.Status != StatusInProgress {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, rk)
			return nil
		})
		return err
	}, rk)
	if err != nil {
		return apperr.NewStoreError(s.keyspace, "release", err)
	}
	return nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRecord(ctx context.Context, c stringGetter, key string) (*IdempotencyRecord, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}
