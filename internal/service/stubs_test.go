package service

import (
	"context"
	"io"
	"sync"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/ports"
)

type objectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newObjectStore() *objectStore {
	return &objectStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *objectStore) Put(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+objectName] = data
	s.types[bucket+"/"+objectName] = contentType
	return objectName, nil
}

func (s *objectStore) Get(ctx context.Context, bucket, objectName string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+objectName]
	if !ok {
		return nil, ports.ErrObjectNotFound
	}
	return data, nil
}

func (s *objectStore) Delete(ctx context.Context, bucket, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+objectName)
	return nil
}

func (s *objectStore) seed(bucket, objectName string, data []byte) {
	s.objects[bucket+"/"+objectName] = data
}

// historyLog keeps entries in insertion order and resolves deletes the same
// way the persistent stores do.
type historyLog struct {
	entries []domain.EmailHistoryEntry
}

func (h *historyLog) Append(ctx context.Context, entry domain.EmailHistoryEntry) error {
	h.entries = append(h.entries, entry)
	if len(h.entries) > domain.EmailHistoryLimit {
		h.entries = h.entries[len(h.entries)-domain.EmailHistoryLimit:]
	}
	return nil
}

func (h *historyLog) List(ctx context.Context) ([]domain.EmailHistoryEntry, error) {
	out := make([]domain.EmailHistoryEntry, len(h.entries))
	copy(out, h.entries)
	domain.SortHistoryDesc(out)
	return out, nil
}

func (h *historyLog) DeleteByIndices(ctx context.Context, indices []int) (int, error) {
	desc, _ := h.List(ctx)
	targets, err := domain.ResolveHistoryIndices(desc, indices)
	if err != nil {
		return 0, err
	}
	remove := make(map[string]struct{}, len(targets))
	for _, e := range targets {
		remove[e.ID.String()] = struct{}{}
	}
	kept := h.entries[:0]
	for _, e := range h.entries {
		if _, ok := remove[e.ID.String()]; !ok {
			kept = append(kept, e)
		}
	}
	h.entries = kept
	return len(targets), nil
}

func (h *historyLog) Clear(ctx context.Context) error {
	h.entries = nil
	return nil
}

type templateStore struct {
	templates map[string]domain.EmailTemplate
}

func newTemplateStore() *templateStore {
	return &templateStore{templates: make(map[string]domain.EmailTemplate)}
}

func (s *templateStore) Upsert(ctx context.Context, tpl *domain.EmailTemplate) (*domain.EmailTemplate, error) {
	clone := *tpl
	s.templates[tpl.Name] = clone
	return &clone, nil
}

func (s *templateStore) FindByName(ctx context.Context, name string) (*domain.EmailTemplate, error) {
	tpl, ok := s.templates[name]
	if !ok {
		return nil, ports.ErrTemplateNotFound
	}
	return &tpl, nil
}

type stubMailer struct {
	sent      []domain.OutgoingEmail
	simulated bool
	err       error
}

func (m *stubMailer) Send(ctx context.Context, msg domain.OutgoingEmail) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	m.sent = append(m.sent, msg)
	if m.simulated {
		return "simulation-1", true, nil
	}
	return "<1.example.com>", false, nil
}
