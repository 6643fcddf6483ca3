package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/apperr"
	"github.com/marketbasket/pricewatch/internal/domain"
)

// ---- test helpers ----

type staticAuth struct {
	token string
	err   error
}

func (s staticAuth) CurrentSession(context.Context) (string, error) { return s.token, s.err }

func newTestClient(t *testing.T, h http.HandlerFunc, auth AuthGateway) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", auth, 2*time.Second, zap.NewNop())
}

// ---- tests ----

func TestListTriggers_AttachesBearerAndZip(t *testing.T) {
	var gotAuth, gotZip string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/price-triggers/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotZip = r.URL.Query().Get("zip")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Milk","target_price":3.5,"current_price":3.0},
		                         {"id":2,"name":"Eggs","target_price":2,"current_price":null}]`))
	}, staticAuth{token: "tok-1"})

	got, err := c.ListTriggers(context.Background(), "45202")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotAuth != "Bearer tok-1" || gotZip != "45202" {
		t.Fatalf("auth=%q zip=%q", gotAuth, gotZip)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].CurrentPrice.Valid {
		t.Fatalf("unexpected triggers: %+v", got)
	}
}

func TestListTriggers_AnonymousWhenNoCredential(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}, staticAuth{err: apperr.ErrAuthRequired})

	got, err := c.ListTriggers(context.Background(), "")
	if err != nil {
		t.Fatalf("anonymous read should succeed: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("no Authorization header expected, got %q", gotAuth)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty list, got %#v", got)
	}
}

func TestCreateTrigger_RequiresAuthBeforeSending(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}, staticAuth{err: apperr.ErrAuthRequired})

	_, err := c.CreateTrigger(context.Background(), domain.NewTrigger{Name: "Milk", TargetPrice: decimal.RequireFromString("3.50")})
	if !errors.Is(err, apperr.ErrAuthRequired) {
		t.Fatalf("want ErrAuthRequired, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("request must not be sent")
	}

	anon := New("http://127.0.0.1:1", nil, time.Second, nil)
	if err := anon.DeleteTrigger(context.Background(), "1"); !errors.Is(err, apperr.ErrAuthRequired) {
		t.Fatalf("nil gateway delete: %v", err)
	}
}

func TestCreateTrigger_ValidationNeverSends(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}, staticAuth{token: "tok"})

	_, err := c.CreateTrigger(context.Background(), domain.NewTrigger{Name: "  ", TargetPrice: decimal.NewFromInt(1)})
	if !apperr.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
	_, err = c.CreateTrigger(context.Background(), domain.NewTrigger{Name: "Milk", TargetPrice: decimal.NewFromInt(-1)})
	if !apperr.IsValidation(err) {
		t.Fatalf("want validation error for negative target, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("invalid trigger was sent")
	}
}

func TestCreateTrigger_PostsPayload(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc","name":"Milk","target_price":3.5,"zip":"45202","current_price":3.29}`))
	}, staticAuth{token: "tok"})

	tr, err := c.CreateTrigger(context.Background(), domain.NewTrigger{Name: " Milk ", TargetPrice: decimal.RequireFromString("3.50"), Zip: "45202"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tr.ID != "abc" || !tr.CurrentPrice.Valid {
		t.Fatalf("unexpected trigger: %+v", tr)
	}
	if body["name"] != "Milk" || body["target_price"] != 3.5 || body["zip"] != "45202" {
		t.Fatalf("unexpected payload: %v", body)
	}
}

func TestDeleteTrigger_EscapesID(t *testing.T) {
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}, staticAuth{token: "tok"})

	if err := c.DeleteTrigger(context.Background(), "a/b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if path != "/price-triggers/a%2Fb" {
		t.Fatalf("path: %q", path)
	}
}

func TestSearchPrices_EmptyAndErrors(t *testing.T) {
	status := http.StatusOK
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("term") != "apples" {
			t.Errorf("term: %q", r.URL.Query().Get("term"))
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"detail":"Kroger API error: timeout"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	if _, err := c.SearchPrices(context.Background(), " apples ", ""); !errors.Is(err, apperr.ErrEmptyResult) {
		t.Fatalf("want ErrEmptyResult, got %v", err)
	}

	status = http.StatusInternalServerError
	_, err := c.SearchPrices(context.Background(), "apples", "")
	var te *apperr.TransportError
	if !errors.As(err, &te) || te.StatusCode != 500 || te.Detail != "Kroger API error: timeout" {
		t.Fatalf("want transport error with detail, got %v", err)
	}

	if _, err := c.SearchPrices(context.Background(), "", ""); !apperr.IsValidation(err) {
		t.Fatalf("empty term should be rejected locally, got %v", err)
	}
}

func TestSearchPrices_NetworkFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", nil, 500*time.Millisecond, zap.NewNop())
	_, err := c.SearchPrices(context.Background(), "milk", "")
	var te *apperr.TransportError
	if !errors.As(err, &te) || te.StatusCode != 0 {
		t.Fatalf("want transport error without status, got %v", err)
	}
}

func TestRecordSearchTerm_SwallowsFailure(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p map[string]string
		_ = json.NewDecoder(r.Body).Decode(&p)
		got = p["term"]
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	c.RecordSearchTerm(context.Background(), "bananas") // must not panic or block
	if got != "bananas" {
		t.Fatalf("term not sent: %q", got)
	}
}

func TestRecommendations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Kroger 2% Milk","kroger_price":3.29}]`))
	}, nil)

	recs, err := c.Recommendations(context.Background())
	if err != nil {
		t.Fatalf("recs: %v", err)
	}
	if len(recs) != 1 || !recs[0].Price.Equal(decimal.RequireFromString("3.29")) {
		t.Fatalf("unexpected: %+v", recs)
	}
}
