package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/domain"
	"github.com/marketbasket/pricewatch/internal/repo"
)

var (
	_ repo.TriggerStore      = (*Store)(nil)
	_ repo.SearchTermStore   = (*Store)(nil)
	_ repo.NotificationStore = (*Store)(nil)
)

// Schema creates every table the store needs. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS price_triggers (
  id            TEXT PRIMARY KEY,
  owner         TEXT NOT NULL,
  name          TEXT NOT NULL,
  target_price  NUMERIC NOT NULL,
  zip           TEXT NOT NULL DEFAULT '',
  current_price NUMERIC NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_triggers_owner ON price_triggers (owner, created_at);

CREATE TABLE IF NOT EXISTS search_terms (
  id         TEXT PRIMARY KEY,
  owner      TEXT NOT NULL,
  term       TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trigger_notifications (
  trigger_id TEXT PRIMARY KEY,
  status     TEXT NOT NULL,
  sent_at    TIMESTAMPTZ NOT NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("schema_ready")
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- TriggerStore ----

const triggerCols = `id, owner, name, target_price, zip, current_price, created_at`

func (s *Store) Add(ctx context.Context, t *domain.Trigger) error {
	if t.ID == "" {
		t.ID = domain.TriggerID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_triggers (`+triggerCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(t.ID), t.Owner, t.Name, t.TargetPrice, t.Zip, t.CurrentPrice, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trigger: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, owner string) ([]domain.Trigger, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+triggerCols+`
		   FROM price_triggers
		  WHERE owner = $1
		  ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	return collectTriggers(rows)
}

func (s *Store) All(ctx context.Context) ([]domain.Trigger, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+triggerCols+`
		   FROM price_triggers
		  ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("all triggers: %w", err)
	}
	return collectTriggers(rows)
}

func (s *Store) Get(ctx context.Context, owner string, id domain.TriggerID) (*domain.Trigger, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+triggerCols+`
		   FROM price_triggers
		  WHERE owner = $1 AND id = $2`, owner, string(id))
	if err != nil {
		return nil, fmt.Errorf("get trigger: %w", err)
	}
	out, err := collectTriggers(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repo.ErrNotFound
	}
	return &out[0], nil
}

func (s *Store) Delete(ctx context.Context, owner string, id domain.TriggerID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM price_triggers WHERE owner = $1 AND id = $2`, owner, string(id))
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM trigger_notifications WHERE trigger_id = $1`, string(id)); err != nil {
		s.log.Warn("delete_notification_failed", zap.String("trigger_id", string(id)), zap.Error(err))
	}
	return nil
}

func (s *Store) SetCurrentPrice(ctx context.Context, id domain.TriggerID, price decimal.NullDecimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE price_triggers SET current_price = $2 WHERE id = $1`, string(id), price)
	if err != nil {
		return fmt.Errorf("update current price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func collectTriggers(rows pgx.Rows) ([]domain.Trigger, error) {
	defer rows.Close()
	out := make([]domain.Trigger, 0)
	for rows.Next() {
		var (
			t  domain.Trigger
			id string
		)
		if err := rows.Scan(&id, &t.Owner, &t.Name, &t.TargetPrice, &t.Zip, &t.CurrentPrice, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		t.ID = domain.TriggerID(id)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- SearchTermStore ----

func (s *Store) Record(ctx context.Context, st *domain.SearchTerm) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_terms (id, owner, term, created_at) VALUES ($1, $2, $3, $4)`,
		st.ID, st.Owner, st.Term, st.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert search term: %w", err)
	}
	return nil
}

// ---- NotificationStore ----

func (s *Store) LastNotified(ctx context.Context, id domain.TriggerID) (*repo.NotificationRecord, error) {
	const q = `SELECT status, sent_at FROM trigger_notifications WHERE trigger_id = $1`
	rec := repo.NotificationRecord{TriggerID: id}
	err := s.pool.QueryRow(ctx, q, string(id)).Scan(&rec.Status, &rec.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &rec, nil
}

func (s *Store) MarkNotified(ctx context.Context, rec repo.NotificationRecord) error {
	const q = `
		INSERT INTO trigger_notifications (trigger_id, status, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (trigger_id)
		DO UPDATE SET status = EXCLUDED.status, sent_at = EXCLUDED.sent_at
	`
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	if _, err := s.pool.Exec(ctx, q, string(rec.TriggerID), rec.Status, rec.SentAt); err != nil {
		return fmt.Errorf("upsert notification: %w", err)
	}
	return nil
}
