package pricing

import (
	"github.com/marketbasket/pricewatch/internal/domain"
)

// Evaluate produces one alert per trigger with a known current price, in
// input order. Triggers without a current price are skipped.
func Evaluate(triggers []domain.Trigger) []Alert {
	alerts := make([]Alert, 0, len(triggers))
	for _, t := range triggers {
		if a, ok := Format(t, Compare(t.TargetPrice, t.CurrentPrice)); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}
