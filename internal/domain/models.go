package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers (the web client and the backend both expect that).
	decimal.MarshalJSONWithoutQuotes = true
}

// TriggerID is opaque to clients. The store assigns it on creation.
type TriggerID string

// UnmarshalJSON accepts numeric IDs as well as strings.
func (id *TriggerID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return fmt.Errorf("trigger id: %w", err)
		}
		*id = TriggerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("trigger id: %w", err)
	}
	*id = TriggerID(n.String())
	return nil
}

// Trigger is a user's standing request to be told when an item's price drops
// to TargetPrice or below. CurrentPrice is invalid until a lookup resolved it.
type Trigger struct {
	ID           TriggerID           `json:"id"`
	Name         string              `json:"name"`
	TargetPrice  decimal.Decimal     `json:"target_price"`
	Zip          string              `json:"zip,omitempty"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	Owner        string              `json:"-"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewTrigger is the validated payload of a trigger submission.
type NewTrigger struct {
	Name        string          `json:"name"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Zip         string          `json:"zip,omitempty"`
}

// ItemPrice is one catalog hit. Recommendations share the same shape.
type ItemPrice struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"kroger_price"`
}

type SearchTerm struct {
	ID        string    `json:"id"`
	Owner     string    `json:"-"`
	Term      string    `json:"term"`
	CreatedAt time.Time `json:"created_at"`
}
