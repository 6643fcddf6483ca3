// Package kroger is the catalog adapter for the Kroger public product API.
package kroger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/marketbasket/pricewatch/internal/apperr"
	"github.com/marketbasket/pricewatch/internal/catalog"
	"github.com/marketbasket/pricewatch/internal/domain"
)

const (
	DefaultBaseURL = "https://api.kroger.com"
	searchLimit    = 20
)

var _ catalog.Catalog = (*Client)(nil)

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New builds a client whose requests carry a client-credentials token. The
// token is fetched lazily and reused until it expires.
func New(baseURL, clientID, clientSecret string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/v1/connect/oauth2/token",
		Scopes:       []string{"product.compact", "profile.compact"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// the token endpoint gets the same timeout as API calls
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	hc := cc.Client(ctx)
	hc.Timeout = timeout

	return &Client{baseURL: baseURL, http: hc, log: log}
}

type locationsResponse struct {
	Data []struct {
		LocationID string `json:"locationId"`
	} `json:"data"`
}

type productsResponse struct {
	Data []struct {
		Description string `json:"description"`
		Items       []struct {
			Price struct {
				Regular *decimal.Decimal `json:"regular"`
			} `json:"price"`
		} `json:"items"`
	} `json:"data"`
}

// NearestLocation returns the store closest to zip, or "" when none matched.
func (c *Client) NearestLocation(ctx context.Context, zip string) (string, error) {
	q := url.Values{}
	q.Set("filter.zipCode.near", zip)
	q.Set("filter.limit", "1")

	var out locationsResponse
	if err := c.get(ctx, "locations", "/v1/locations", q, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", nil
	}
	return out.Data[0].LocationID, nil
}

// Search returns products matching term that have a regular price. When zip
// resolves to a store, prices are that store's.
func (c *Client) Search(ctx context.Context, term, zip string) ([]domain.ItemPrice, error) {
	q := url.Values{}
	q.Set("filter.term", term)
	q.Set("filter.limit", strconv.Itoa(searchLimit))
	if zip != "" {
		loc, err := c.NearestLocation(ctx, zip)
		if err != nil {
			return nil, err
		}
		if loc != "" {
			q.Set("filter.locationId", loc)
		}
	}

	var out productsResponse
	if err := c.get(ctx, "products", "/v1/products", q, &out); err != nil {
		return nil, err
	}

	items := make([]domain.ItemPrice, 0, len(out.Data))
	for _, p := range out.Data {
		if len(p.Items) == 0 || p.Items[0].Price.Regular == nil {
			continue
		}
		name := p.Description
		if name == "" {
			name = "Unknown"
		}
		items = append(items, domain.ItemPrice{Name: name, Price: *p.Items[0].Price.Regular})
	}
	c.log.Debug("kroger_search", zap.String("term", term), zap.String("zip", zip), zap.Int("items", len(items)))
	return items, nil
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WithStack(&apperr.TransportError{Op: op, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apperr.TransportError{Op: op, StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
