package repo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketbasket/pricewatch/internal/domain"
)

// ErrNotFound is returned when a record is missing or belongs to another owner.
var ErrNotFound = errors.New("not found")

// Ports (interfaces): the memory and postgres adapters implement all of them.
type TriggerStore interface {
	// Add assigns ID and CreatedAt when they are empty.
	Add(ctx context.Context, t *domain.Trigger) error
	// List returns the owner's triggers in creation order.
	List(ctx context.Context, owner string) ([]domain.Trigger, error)
	// All returns every stored trigger, regardless of owner.
	All(ctx context.Context) ([]domain.Trigger, error)
	Get(ctx context.Context, owner string, id domain.TriggerID) (*domain.Trigger, error)
	Delete(ctx context.Context, owner string, id domain.TriggerID) error
	SetCurrentPrice(ctx context.Context, id domain.TriggerID, price decimal.NullDecimal) error
}

type SearchTermStore interface {
	Record(ctx context.Context, st *domain.SearchTerm) error
}

// NotificationRecord is the last status we notified about for a trigger and
// when. SentAt drives the cooldown.
type NotificationRecord struct {
	TriggerID domain.TriggerID
	Status    string
	SentAt    time.Time
}

type NotificationStore interface {
	// LastNotified returns nil, nil if there's no record yet.
	LastNotified(ctx context.Context, id domain.TriggerID) (*NotificationRecord, error)
	// MarkNotified upserts the record.
	MarkNotified(ctx context.Context, rec NotificationRecord) error
}
