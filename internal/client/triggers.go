package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/marketbasket/pricewatch/internal/domain"
	"github.com/marketbasket/pricewatch/internal/validate"
)

// ListTriggers returns the caller's triggers in store order. zip scopes the
// price lookup to a region when set.
func (c *Client) ListTriggers(ctx context.Context, zip string) ([]domain.Trigger, error) {
	q := url.Values{}
	if zip != "" {
		q.Set("zip", zip)
	}
	var out []domain.Trigger
	err := c.do(ctx, request{op: "list triggers", method: http.MethodGet, path: "/price-triggers/", query: q}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTrigger validates nt and submits it. Invalid input is never sent.
func (c *Client) CreateTrigger(ctx context.Context, nt domain.NewTrigger) (domain.Trigger, error) {
	target := nt.TargetPrice
	valid, err := validate.Payload(validate.TriggerPayload{Name: nt.Name, TargetPrice: &target, Zip: nt.Zip})
	if err != nil {
		return domain.Trigger{}, err
	}
	var out domain.Trigger
	err = c.do(ctx, request{
		op:     "create trigger",
		method: http.MethodPost,
		path:   "/price-triggers/",
		body:   valid,
		auth:   authRequired,
	}, &out)
	return out, err
}

func (c *Client) DeleteTrigger(ctx context.Context, id domain.TriggerID) error {
	return c.do(ctx, request{
		op:     "delete trigger",
		method: http.MethodDelete,
		path:   "/price-triggers/" + url.PathEscape(string(id)),
		auth:   authRequired,
	}, nil)
}
