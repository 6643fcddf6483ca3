// Package recommend suggests catalog items priced close to what the user
// already watches.
package recommend

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/catalog"
	"github.com/marketbasket/pricewatch/internal/domain"
)

var (
	// Tolerance is the widest gap between an item's price and a target that
	// still counts as a match. The bound is inclusive.
	Tolerance = decimal.RequireFromString("0.50")

	FallbackTerms = []string{"milk", "eggs", "bread"}
)

const fallbackPerTerm = 3

// Build returns items within Tolerance of each trigger's target. Lookups that
// fail are skipped. With no match at all it falls back to a few staples.
func Build(ctx context.Context, cat catalog.Catalog, triggers []domain.Trigger, log *zap.Logger) []domain.ItemPrice {
	if log == nil {
		log = zap.NewNop()
	}
	recs := make([]domain.ItemPrice, 0)
	for _, t := range triggers {
		items, err := cat.Search(ctx, t.Name, t.Zip)
		if err != nil {
			log.Warn("recommend_lookup_failed", zap.String("term", t.Name), zap.Error(err))
			continue
		}
		for _, it := range items {
			if it.Price.Sub(t.TargetPrice).Abs().LessThanOrEqual(Tolerance) {
				recs = append(recs, it)
			}
		}
	}
	if len(recs) > 0 {
		return recs
	}

	for _, term := range FallbackTerms {
		items, err := cat.Search(ctx, term, "")
		if err != nil {
			log.Warn("recommend_fallback_failed", zap.String("term", term), zap.Error(err))
			continue
		}
		if len(items) > fallbackPerTerm {
			items = items[:fallbackPerTerm]
		}
		recs = append(recs, items...)
	}
	return recs
}
