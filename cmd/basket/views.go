package main

import (
	"fmt"
	"io"

	"github.com/marketbasket/pricewatch/internal/domain"
	"github.com/marketbasket/pricewatch/internal/pricing"
)

func printItems(w io.Writer, items []domain.ItemPrice) {
	for _, it := range items {
		fmt.Fprintf(w, "%s  $%s\n", it.Name, pricing.FormatAmount(it.Price))
	}
}

func printTriggers(w io.Writer, ts []domain.Trigger) {
	if len(ts) == 0 {
		fmt.Fprintln(w, "No price triggers yet.")
		return
	}
	for _, t := range ts {
		current := "N/A"
		if t.CurrentPrice.Valid {
			current = "$" + pricing.FormatAmount(t.CurrentPrice.Decimal)
		}
		fmt.Fprintf(w, "[%s] %s\n    Target: $%s | Current: %s\n",
			t.ID, t.Name, pricing.FormatAmount(t.TargetPrice), current)
	}
}

func printAlerts(w io.Writer, alerts []pricing.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No alerts.")
		return
	}
	for _, a := range alerts {
		fmt.Fprintf(w, "[%s] %s\n", a.Severity, a.Message)
	}
}

func printRecommendations(w io.Writer, recs []domain.ItemPrice) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations yet.")
		return
	}
	printItems(w, recs)
}
