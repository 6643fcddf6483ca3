package pricing

import (
	"github.com/marketbasket/pricewatch/internal/domain"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

// Alert is derived from a trigger's current state and never persisted.
type Alert struct {
	TriggerID domain.TriggerID `json:"trigger_id"`
	Name      string           `json:"name"`
	Status    Status           `json:"status"`
	Message   string           `json:"message"`
	Severity  Severity         `json:"severity"`
}

// Format builds the alert for t. ok is false when c carries no price data.
func Format(t domain.Trigger, c Comparison) (a Alert, ok bool) {
	a = Alert{TriggerID: t.ID, Name: t.Name, Status: c.Status}
	switch c.Status {
	case StatusOnSale:
		a.Message = t.Name + ": On sale! You save $" + FormatAmount(c.Delta.Decimal.Abs())
		a.Severity = SeveritySuccess
	case StatusAboveTarget:
		a.Message = t.Name + ": Above target by $" + FormatAmount(c.Delta.Decimal)
		a.Severity = SeverityWarning
	default:
		return Alert{}, false
	}
	return a, true
}
