package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTrigger_DecodesBackendShape(t *testing.T) {
	raw := `[{"id":7,"name":"Milk","target_price":3.5,"current_price":null},
	         {"id":"a1b2","name":"Eggs","target_price":2,"current_price":2.75,"zip":"45202"}]`

	var got []Trigger
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 triggers, got %d", len(got))
	}
	if got[0].ID != "7" || got[1].ID != "a1b2" {
		t.Fatalf("ids not decoded: %q %q", got[0].ID, got[1].ID)
	}
	if got[0].CurrentPrice.Valid {
		t.Fatalf("null current_price should be invalid, got %v", got[0].CurrentPrice)
	}
	if !got[1].CurrentPrice.Valid || !got[1].CurrentPrice.Decimal.Equal(decimal.RequireFromString("2.75")) {
		t.Fatalf("current_price mismatch: %+v", got[1].CurrentPrice)
	}
	if !got[0].TargetPrice.Equal(decimal.RequireFromString("3.50")) {
		t.Fatalf("target_price mismatch: %s", got[0].TargetPrice)
	}
}

func TestTrigger_MissingCurrentPriceIsInvalid(t *testing.T) {
	var tr Trigger
	if err := json.Unmarshal([]byte(`{"id":1,"name":"Bread","target_price":1.99}`), &tr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tr.CurrentPrice.Valid {
		t.Fatalf("expected absent current price")
	}
}

func TestItemPrice_EncodesPriceAsNumber(t *testing.T) {
	b, err := json.Marshal(ItemPrice{Name: "Apples", Price: decimal.RequireFromString("1.29")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"kroger_price":1.29`) {
		t.Fatalf("price should be a bare number: %s", b)
	}
}

func TestTriggerID_RejectsGarbage(t *testing.T) {
	var id TriggerID
	if err := json.Unmarshal([]byte(`{}`), &id); err == nil {
		t.Fatalf("expected error for object id")
	}
}
