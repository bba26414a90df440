package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

func newTestStore(t *testing.T, limit int) (*EmailHistoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewEmailHistoryStore(rdb, limit), mr
}

func historyEntry(subject string, sentAt time.Time) domain.EmailHistoryEntry {
	return domain.EmailHistoryEntry{
		ID:             uuid.New(),
		To:             "buyer@example.com",
		Subject:        subject,
		AttachmentName: "purchase_order.xlsx",
		SentAt:         sentAt,
		Status:         domain.EmailStatusSuccess,
	}
}

func subjects(entries []domain.EmailHistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Subject
	}
	return out
}

func TestDeleteUsesSentAtOrderNotArrivalOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 100)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// The slower send lands second even though it started first.
	if err := store.Append(ctx, historyEntry("newer", base.Add(24*time.Hour))); err != nil {
		t.Fatalf("append newer: %v", err)
	}
	if err := store.Append(ctx, historyEntry("older", base)); err != nil {
		t.Fatalf("append older: %v", err)
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := subjects(listed); len(got) != 2 || got[0] != "newer" || got[1] != "older" {
		t.Fatalf("expected newest first, got %v", got)
	}

	removed, err := store.DeleteByIndices(ctx, []int{0})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	listed, err = store.List(ctx)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if got := subjects(listed); len(got) != 1 || got[0] != "older" {
		t.Fatalf("expected only older to remain, got %v", got)
	}
}

func TestDeleteByIndicesRemovesReferencedEntries(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 100)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := store.Append(ctx, historyEntry(fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append e%d: %v", i, err)
		}
	}

	removed, err := store.DeleteByIndices(ctx, []int{0, 2, 2})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"e8", "e6", "e5", "e4", "e3", "e2", "e1", "e0"}
	got := subjects(listed)
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDeleteByIndicesRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 100)
	if err := store.Append(ctx, historyEntry("only", time.Now().UTC())); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.DeleteByIndices(ctx, []int{0, 5}); !errors.Is(err, domain.ErrHistoryIndexOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("nothing should be removed, got %d entries", len(listed))
	}
}

func TestAppendCapKeepsNewestSentAt(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 3)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []int{4, 0, 3, 1, 2} {
		e := historyEntry(fmt.Sprintf("t%d", offset), base.Add(time.Duration(offset)*time.Hour))
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append t%d: %v", offset, err)
		}
	}
	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := subjects(listed)
	want := []string{"t4", "t3", "t2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDeleteRetriesAfterConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, 100)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		if err := store.Append(ctx, historyEntry(fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })
	writer := NewEmailHistoryStore(other, 100)

	attempts := 0
	store.beforeCommit = func(ctx context.Context) {
		attempts++
		if attempts == 1 {
			if err := writer.Append(ctx, historyEntry("late", base)); err != nil {
				t.Errorf("concurrent append: %v", err)
			}
		}
	}

	removed, err := store.DeleteByIndices(ctx, []int{0})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 || attempts != 2 {
		t.Fatalf("expected 1 removed after 2 attempts, got %d removed, %d attempts", removed, attempts)
	}
	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := subjects(listed)
	if len(got) != 3 || got[0] != "e2" || got[2] != "late" {
		t.Fatalf("unexpected history after retry: %v", got)
	}
}

func TestDeleteGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, 100)
	if err := store.Append(ctx, historyEntry("keep", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("append: %v", err)
	}

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })
	writer := NewEmailHistoryStore(other, 100)

	attempts := 0
	store.beforeCommit = func(ctx context.Context) {
		attempts++
		e := historyEntry(fmt.Sprintf("noise%d", attempts), time.Date(2023, 1, 1, 0, 0, attempts, 0, time.UTC))
		if err := writer.Append(ctx, e); err != nil {
			t.Errorf("concurrent append: %v", err)
		}
	}

	if _, err := store.DeleteByIndices(ctx, []int{0}); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
	if attempts != maxDeleteAttempts {
		t.Fatalf("expected %d attempts, got %d", maxDeleteAttempts, attempts)
	}
}

func TestClearEmptiesHistory(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 100)
	if err := store.Append(ctx, historyEntry("gone", time.Now().UTC())); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty history, got %d", len(listed))
	}
}

func TestDecodeEntriesKeepsStoredOrder(t *testing.T) {
	errMsg := "smtp down"
	entries := []domain.EmailHistoryEntry{
		{ID: uuid.New(), To: "a@example.com", Subject: "발주서", SentAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Status: domain.EmailStatusSuccess},
		{ID: uuid.New(), To: "b@example.com", Subject: "발주서", SentAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Status: domain.EmailStatusFailed, Error: &errMsg},
	}
	raws := make([]string, len(entries))
	for i, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		raws[i] = string(b)
	}

	decoded, err := decodeEntries(raws)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 || decoded[0].ID != entries[0].ID || decoded[1].ID != entries[1].ID {
		t.Fatalf("unexpected order: %+v", decoded)
	}
	if decoded[1].Error == nil || *decoded[1].Error != errMsg {
		t.Fatalf("error message lost")
	}

	values := rawByID(decoded, raws)
	if values[entries[1].ID] != raws[1] {
		t.Fatalf("raw value not indexed by id")
	}
}

func TestDecodeEntriesRejectsGarbage(t *testing.T) {
	if _, err := decodeEntries([]string{"{not json"}); err == nil {
		t.Fatalf("expected decode error")
	}
}
