// Package tracker keeps the latest trigger set and the alerts derived from it.
package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/domain"
	"github.com/marketbasket/pricewatch/internal/pricing"
)

// ErrStale is returned by Refresh when a newer refresh was applied while this
// one was in flight. Its result is dropped.
var ErrStale = errors.New("stale refresh discarded")

// Source is the trigger store; client.Client implements it.
type Source interface {
	ListTriggers(ctx context.Context, zip string) ([]domain.Trigger, error)
}

// Snapshot is immutable once published; callers must not modify its slices.
type Snapshot struct {
	Seq         uint64
	Triggers    []domain.Trigger
	Alerts      []pricing.Alert
	RefreshedAt time.Time
}

type Tracker struct {
	src Source
	zip string
	log *zap.Logger
	now func() time.Time

	issued atomic.Uint64

	mu      sync.RWMutex
	applied uint64
	snap    Snapshot
}

func New(src Source, zip string, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{src: src, zip: zip, log: log, now: time.Now}
}

// Refresh reloads triggers and re-evaluates alerts. Each call is numbered when
// issued; a result is applied only if no later-issued refresh has been
// applied already. A failed refresh leaves the current snapshot untouched.
func (t *Tracker) Refresh(ctx context.Context) (Snapshot, error) {
	seq := t.issued.Add(1)

	triggers, err := t.src.ListTriggers(ctx, t.zip)
	if err != nil {
		return t.Snapshot(), err
	}
	alerts := pricing.Evaluate(triggers)

	t.mu.Lock()
	defer t.mu.Unlock()
	if seq <= t.applied {
		t.log.Debug("refresh_stale", zap.Uint64("seq", seq), zap.Uint64("applied", t.applied))
		return t.snap, ErrStale
	}
	t.applied = seq
	t.snap = Snapshot{Seq: seq, Triggers: triggers, Alerts: alerts, RefreshedAt: t.now()}
	t.log.Debug("refresh_applied",
		zap.Uint64("seq", seq),
		zap.Int("triggers", len(triggers)),
		zap.Int("alerts", len(alerts)),
	)
	return t.snap, nil
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
