package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/catalog"
	"github.com/marketbasket/pricewatch/internal/domain"
	"github.com/marketbasket/pricewatch/internal/repo"
)

// RefreshPrices looks up the current price of every trigger, at most
// concurrency lookups at a time, and stores what it found. A failed or empty
// lookup keeps the previous price. A non-empty zip overrides each trigger's
// own ZIP for the lookup. The returned slice is in input order.
func RefreshPrices(
	ctx context.Context,
	store repo.TriggerStore,
	cat catalog.Catalog,
	triggers []domain.Trigger,
	zip string,
	concurrency int,
	timeout time.Duration,
	log *zap.Logger,
) []domain.Trigger {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	out := make([]domain.Trigger, len(triggers))
	copy(out, triggers)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range out {
		sem <- struct{}{}
		wg.Add(1)
		go func(t *domain.Trigger) {
			defer func() { <-sem }()
			defer wg.Done()

			lctx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				lctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			lookupZip := t.Zip
			if zip != "" {
				lookupZip = zip
			}
			items, err := cat.Search(lctx, t.Name, lookupZip)
			if err != nil {
				log.Warn("price_lookup_error",
					zap.String("trigger_id", string(t.ID)),
					zap.String("name", t.Name),
					zap.Error(err),
				)
				return
			}
			price := catalog.FirstPrice(items)
			if !price.Valid {
				return
			}
			t.CurrentPrice = price
			if err := store.SetCurrentPrice(ctx, t.ID, price); err != nil {
				log.Warn("price_store_error", zap.String("trigger_id", string(t.ID)), zap.Error(err))
				return
			}
			log.Debug("price_refreshed",
				zap.String("trigger_id", string(t.ID)),
				zap.String("name", t.Name),
				zap.String("price", price.Decimal.String()),
			)
		}(&out[i])
	}

	wg.Wait()
	return out
}
