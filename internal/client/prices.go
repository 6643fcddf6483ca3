package client

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/apperr"
	"github.com/marketbasket/pricewatch/internal/domain"
	"github.com/marketbasket/pricewatch/internal/validate"
)

// SearchPrices looks up catalog prices for term. Zero hits is reported as
// apperr.ErrEmptyResult.
func (c *Client) SearchPrices(ctx context.Context, term, zip string) ([]domain.ItemPrice, error) {
	term, zip, err := validate.Search(term, zip)
	if err != nil {
		return nil, err
	}
	q := url.Values{"term": {term}}
	if zip != "" {
		q.Set("zip", zip)
	}
	var out []domain.ItemPrice
	if err := c.do(ctx, request{op: "search prices", method: http.MethodGet, path: "/item-prices/", query: q}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.ErrEmptyResult
	}
	return out, nil
}

// RecordSearchTerm is best effort: failures are logged and dropped.
func (c *Client) RecordSearchTerm(ctx context.Context, term string) {
	err := c.do(ctx, request{
		op:     "record search term",
		method: http.MethodPost,
		path:   "/search-terms/",
		body:   map[string]string{"term": term},
	}, nil)
	if err != nil {
		c.Logger.Debug("search_term_not_recorded", zap.String("term", term), zap.Error(err))
	}
}

// Recommendations returns items priced close to the caller's targets, or the
// backend's defaults. Zero items is apperr.ErrEmptyResult.
func (c *Client) Recommendations(ctx context.Context) ([]domain.ItemPrice, error) {
	var out []domain.ItemPrice
	if err := c.do(ctx, request{op: "recommendations", method: http.MethodGet, path: "/recommendations/"}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.ErrEmptyResult
	}
	return out, nil
}
