package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/domain"
	"github.com/marketbasket/pricewatch/internal/repo"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestPostgresStore_TriggerLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	// unique owner per run so leftovers from earlier runs don't interfere
	owner := fmt.Sprintf("test-%d", time.Now().UTC().UnixNano())

	tr := &domain.Trigger{
		Name:        "milk",
		TargetPrice: decimal.RequireFromString("2.50"),
		Zip:         "45202",
		Owner:       owner,
	}
	if err := store.Add(ctx, tr); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if tr.ID == "" {
		t.Fatalf("expected ID to be set")
	}

	list, err := store.List(ctx, owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != tr.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0].CurrentPrice.Valid {
		t.Fatalf("expected no current price yet")
	}
	if !list[0].TargetPrice.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("target price round trip: %s", list[0].TargetPrice)
	}

	if err := store.SetCurrentPrice(ctx, tr.ID, decimal.NewNullDecimal(decimal.RequireFromString("1.99"))); err != nil {
		t.Fatalf("SetCurrentPrice: %v", err)
	}
	got, err := store.Get(ctx, owner, tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CurrentPrice.Valid || !got.CurrentPrice.Decimal.Equal(decimal.RequireFromString("1.99")) {
		t.Fatalf("unexpected current price: %+v", got.CurrentPrice)
	}

	if _, err := store.Get(ctx, owner+"-other", tr.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("Get other owner: want ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, owner, tr.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, owner, tr.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("second Delete: want ErrNotFound, got %v", err)
	}
}

func TestPostgresStore_Notifications(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id := domain.TriggerID(fmt.Sprintf("T-%d", time.Now().UTC().UnixNano()))

	rec, err := store.LastNotified(ctx, id)
	if err != nil || rec != nil {
		t.Fatalf("expected nil, got %+v err=%v", rec, err)
	}
	if err := store.MarkNotified(ctx, repo.NotificationRecord{TriggerID: id, Status: "ON_SALE"}); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	if err := store.MarkNotified(ctx, repo.NotificationRecord{TriggerID: id, Status: "ABOVE_TARGET"}); err != nil {
		t.Fatalf("MarkNotified upsert: %v", err)
	}
	rec, err = store.LastNotified(ctx, id)
	if err != nil || rec == nil || rec.Status != "ABOVE_TARGET" || rec.SentAt.IsZero() {
		t.Fatalf("unexpected: %+v err=%v", rec, err)
	}
}

func TestPostgresStore_RecordSearchTerm(t *testing.T) {
	store := openStore(t)
	st := &domain.SearchTerm{Term: "eggs", Owner: "test"}
	if err := store.Record(context.Background(), st); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if st.ID == "" {
		t.Fatalf("expected ID to be set")
	}
}
