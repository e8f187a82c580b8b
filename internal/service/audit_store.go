package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/config"
	"github.com/stemsi/degree-audit-backend/internal/model"
)

// AuditStore is the hot storage in front of Postgres: cached engine results
// keyed by document, and records waiting for the persist worker.
type AuditStore interface {
	GetResult(ctx context.Context, key string) (*audit.Result, bool, error)
	PutResult(ctx context.Context, key string, res *audit.Result, ttl time.Duration) error
	Enqueue(ctx context.Context, rec *model.AuditRecord, ttl time.Duration) error
	GetRecord(ctx context.Context, id uuid.UUID) (*model.AuditRecord, bool, error)
}

type redisAuditStore struct {
	rdb *redis.Client
}

// NewRedisAuditStore backs an AuditStore with Redis.
func NewRedisAuditStore(rdb *redis.Client) AuditStore {
	return &redisAuditStore{rdb: rdb}
}

func (s *redisAuditStore) GetResult(ctx context.Context, key string) (*audit.Result, bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached result: %w", err)
	}

	var res audit.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached result: %w", err)
	}
	return &res, true, nil
}

func (s *redisAuditStore) PutResult(ctx context.Context, key string, res *audit.Result, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}

// Enqueue stores the record for reads and queues it for persistence in one
// round trip.
func (s *redisAuditStore) Enqueue(ctx context.Context, rec *model.AuditRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, config.CacheKey.AuditRecordKey(rec.ID.String()), data, ttl)
	pipe.RPush(ctx, config.WorkerKey.PersistAuditsQueue, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue audit: %w", err)
	}
	return nil
}

func (s *redisAuditStore) GetRecord(ctx context.Context, id uuid.UUID) (*model.AuditRecord, bool, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.AuditRecordKey(id.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get pending record: %w", err)
	}

	var rec model.AuditRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal pending record: %w", err)
	}
	return &rec, true, nil
}
