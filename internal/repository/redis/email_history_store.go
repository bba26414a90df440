// Package redis keeps the email history log in a Redis sorted set scored by
// send time, so reads and trims follow sentAt rather than arrival order.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/ports"
)

const (
	// DefaultKey is the sorted set holding serialized history entries.
	DefaultKey = "porder:email:history"

	maxDeleteAttempts = 5
)

var ErrConcurrentUpdate = errors.New("history changed during delete, retries exhausted")

func NewClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

type rangeReader interface {
	ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

type EmailHistoryStore struct {
	rdb   *redis.Client
	key   string
	limit int

	// beforeCommit runs inside the WATCH callback once the targets are
	// resolved. Nil outside tests.
	beforeCommit func(ctx context.Context)
}

var _ ports.EmailHistoryRepository = (*EmailHistoryStore)(nil)

func NewEmailHistoryStore(rdb *redis.Client, limit int) *EmailHistoryStore {
	if limit <= 0 {
		limit = domain.EmailHistoryLimit
	}
	return &EmailHistoryStore{rdb: rdb, key: DefaultKey, limit: limit}
}

// Append scores the entry by its send time and drops everything ranked past
// the limit in a single MULTI block, so the cap keeps the newest sentAt values
// even when sends finish out of order.
func (s *EmailHistoryStore) Append(ctx context.Context, entry domain.EmailHistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.key, redis.Z{Score: score(entry), Member: string(raw)})
		pipe.ZRemRangeByRank(ctx, s.key, 0, int64(-s.limit-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *EmailHistoryStore) List(ctx context.Context) ([]domain.EmailHistoryEntry, error) {
	_, entries, err := s.read(ctx, s.rdb)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// DeleteByIndices watches the set while resolving indices against the
// newest-first view and removes the referenced members. A concurrent write
// aborts the transaction and the delete is retried against the new contents.
func (s *EmailHistoryStore) DeleteByIndices(ctx context.Context, indices []int) (int, error) {
	for attempt := 0; attempt < maxDeleteAttempts; attempt++ {
		removed := 0
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raws, entries, err := s.read(ctx, tx)
			if err != nil {
				return err
			}
			targets, err := domain.ResolveHistoryIndices(entries, indices)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				return nil
			}
			if s.beforeCommit != nil {
				s.beforeCommit(ctx)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, e := range targets {
					pipe.ZRem(ctx, s.key, raws[e.ID])
				}
				return nil
			})
			if err == nil {
				removed = len(targets)
			}
			return err
		}, s.key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return removed, nil
	}
	return 0, ErrConcurrentUpdate
}

// read returns the newest-first view together with each entry's stored
// member, keyed by id.
func (s *EmailHistoryStore) read(ctx context.Context, c rangeReader) (map[uuid.UUID]string, []domain.EmailHistoryEntry, error) {
	members, err := c.ZRevRange(ctx, s.key, 0, int64(s.limit-1)).Result()
	if err != nil {
		return nil, nil, err
	}
	entries, err := decodeEntries(members)
	if err != nil {
		return nil, nil, err
	}
	raws := rawByID(entries, members)
	domain.SortHistoryDesc(entries)
	return raws, entries, nil
}

func (s *EmailHistoryStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}

func score(e domain.EmailHistoryEntry) float64 {
	return float64(e.SentAt.UnixMicro())
}

func decodeEntries(raws []string) ([]domain.EmailHistoryEntry, error) {
	entries := make([]domain.EmailHistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var e domain.EmailHistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func rawByID(entries []domain.EmailHistoryEntry, raws []string) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(entries))
	for i, e := range entries {
		out[e.ID] = raws[i]
	}
	return out
}
