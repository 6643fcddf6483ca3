package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketbasket/pricewatch/internal/domain"
	"github.com/marketbasket/pricewatch/internal/repo"
)

var (
	_ repo.TriggerStore      = (*Store)(nil)
	_ repo.SearchTermStore   = (*Store)(nil)
	_ repo.NotificationStore = (*Store)(nil)
)

type Store struct {
	mu       sync.RWMutex
	triggers map[domain.TriggerID]*domain.Trigger
	order    []domain.TriggerID
	terms    []domain.SearchTerm
	notified map[domain.TriggerID]repo.NotificationRecord
}

func New() *Store {
	return &Store{
		triggers: make(map[domain.TriggerID]*domain.Trigger),
		notified: make(map[domain.TriggerID]repo.NotificationRecord),
	}
}

// ---- TriggerStore ----

func (m *Store) Add(ctx context.Context, t *domain.Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = domain.TriggerID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if _, ok := m.triggers[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	cp := *t
	m.triggers[t.ID] = &cp
	return nil
}

func (m *Store) List(ctx context.Context, owner string) ([]domain.Trigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Trigger, 0, len(m.order))
	for _, id := range m.order {
		if t := m.triggers[id]; t.Owner == owner {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *Store) All(ctx context.Context) ([]domain.Trigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Trigger, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.triggers[id])
	}
	return out, nil
}

func (m *Store) Get(ctx context.Context, owner string, id domain.TriggerID) (*domain.Trigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.triggers[id]
	if !ok || t.Owner != owner {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Store) Delete(ctx context.Context, owner string, id domain.TriggerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.triggers[id]
	if !ok || t.Owner != owner {
		return repo.ErrNotFound
	}
	delete(m.triggers, id)
	delete(m.notified, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Store) SetCurrentPrice(ctx context.Context, id domain.TriggerID, price decimal.NullDecimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.triggers[id]
	if !ok {
		return repo.ErrNotFound
	}
	t.CurrentPrice = price
	return nil
}

// ---- SearchTermStore ----

func (m *Store) Record(ctx context.Context, st *domain.SearchTerm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	m.terms = append(m.terms, *st)
	return nil
}

// Terms returns recorded search terms, oldest first.
func (m *Store) Terms() []domain.SearchTerm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.SearchTerm(nil), m.terms...)
}

// ---- NotificationStore ----

func (m *Store) LastNotified(ctx context.Context, id domain.TriggerID) (*repo.NotificationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.notified[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Store) MarkNotified(ctx context.Context, rec repo.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	m.notified[rec.TriggerID] = rec
	return nil
}
