package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/notify"
	"github.com/marketbasket/pricewatch/internal/pricing"
	"github.com/marketbasket/pricewatch/internal/repo"
	"github.com/marketbasket/pricewatch/internal/tracker"
)

// Refresher is satisfied by *tracker.Tracker.
type Refresher interface {
	Refresh(ctx context.Context) (tracker.Snapshot, error)
}

type AlerterConfig struct {
	// Cooldown is the minimum gap between repeated on-sale notifications
	// for the same trigger.
	Cooldown     time.Duration
	PollInterval time.Duration
}

// Alerter polls the tracker and notifies when a trigger goes on sale, and
// when it goes back above target afterwards.
type Alerter struct {
	tracker  Refresher
	notified repo.NotificationStore
	notifier notify.Notifier
	cfg      AlerterConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewAlerter(
	tr Refresher,
	notified repo.NotificationStore,
	notifier notify.Notifier,
	cfg AlerterConfig,
	log *zap.Logger,
) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	return &Alerter{
		tracker:  tr,
		notified: notified,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	t := time.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	a.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			a.tick(ctx)
		}
	}
}

func (a *Alerter) tick(ctx context.Context) {
	if err := a.scanOnce(ctx); err != nil && !errors.Is(err, tracker.ErrStale) {
		a.log.Warn("alerter_scan_error", zap.Error(err))
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	snap, err := a.tracker.Refresh(ctx)
	if err != nil {
		return err
	}

	now := a.now()
	for _, al := range snap.Alerts {
		rec, err := a.notified.LastNotified(ctx, al.TriggerID)
		if err != nil {
			a.log.Warn("alerter_record_error", zap.String("trigger_id", string(al.TriggerID)), zap.Error(err))
			continue
		}

		title, send := a.decide(rec, al, now)
		if !send {
			continue
		}
		if err := a.notifier.Send(ctx, title, al.Message); err != nil {
			// not recorded, so the next tick tries again
			a.log.Warn("alerter_send_error", zap.String("trigger_id", string(al.TriggerID)), zap.Error(err))
			continue
		}
		if err := a.notified.MarkNotified(ctx, repo.NotificationRecord{
			TriggerID: al.TriggerID,
			Status:    string(al.Status),
			SentAt:    now,
		}); err != nil {
			a.log.Warn("alerter_mark_error", zap.String("trigger_id", string(al.TriggerID)), zap.Error(err))
		}
		a.log.Info("alert_sent",
			zap.String("trigger_id", string(al.TriggerID)),
			zap.String("status", string(al.Status)),
		)
	}
	return nil
}

func (a *Alerter) decide(rec *repo.NotificationRecord, al pricing.Alert, now time.Time) (title string, send bool) {
	switch al.Status {
	case pricing.StatusOnSale:
		if rec == nil || rec.Status != string(pricing.StatusOnSale) {
			return "Price drop", true
		}
		if now.Sub(rec.SentAt) >= a.cfg.Cooldown {
			return "Still on sale", true
		}
	case pricing.StatusAboveTarget:
		if rec != nil && rec.Status == string(pricing.StatusOnSale) {
			return "Price back up", true
		}
	}
	return "", false
}
