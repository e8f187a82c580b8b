package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-audit-backend/internal/config"
	"github.com/stemsi/degree-audit-backend/internal/model"
	"github.com/stemsi/degree-audit-backend/internal/repository"
)

// Queue is the slice of Redis the worker needs.
type Queue interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPop(ctx context.Context, key string) *redis.StringCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// AuditPersistWorker consumes persist_audits_queue and inserts audits into PostgreSQL.
type AuditPersistWorker struct {
	repo       repository.AuditRepository
	queue      Queue
	key        string
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewAuditPersistWorker creates a new AuditPersistWorker.
func NewAuditPersistWorker(repo repository.AuditRepository, queue Queue, log zerolog.Logger) *AuditPersistWorker {
	return &AuditPersistWorker{
		repo:       repo,
		queue:      queue,
		key:        config.WorkerKey.PersistAuditsQueue,
		retryDelay: 5 * time.Second,
		log:        log.With().Str("component", "audit_persist_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AuditPersistWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AuditPersistWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.queue.BLPop(ctx, time.Second, w.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	rec, err := decode(result[1])
	if err != nil {
		// A payload that does not decode will never succeed; drop it.
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.repo.Create(ctx, rec); err != nil {
		w.log.Error().Err(err).
			Str("audit_id", rec.ID.String()).
			Int("student_id", rec.StudentID).
			Dur("retry_in", w.retryDelay).
			Msg("Persist error, retrying")
		// Push back to queue for retry.
		w.queue.RPush(context.Background(), w.key, result[1])
		select {
		case <-time.After(w.retryDelay):
		case <-ctx.Done():
		}
		return
	}

	w.log.Debug().Str("audit_id", rec.ID.String()).Msg("Audit persisted")
}

// drain processes all remaining items in the queue before shutdown.
func (w *AuditPersistWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.queue.LPop(ctx, w.key).Result()
		if err != nil {
			break
		}

		rec, err := decode(raw)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.repo.Create(ctx, rec); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.queue.RPush(ctx, w.key, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

func decode(raw string) (*model.AuditRecord, error) {
	var rec model.AuditRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
