package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/xelth-com/orderbot/internal/fields"
	"github.com/xelth-com/orderbot/internal/transport"
)

const (
	DefaultURL = "https://us-central1-get-feedback-a0119.cloudfunctions.net/app/api/shopee/getOrderDetailsForCookie"

	// MaxCookies is the largest batch the lookup endpoint accepts
	MaxCookies = 10
)

// ErrPayload marks a 2xx response whose body is not a usable order batch
var ErrPayload = errors.New("malformed order payload")

// Config holds configuration for the order lookup client
type Config struct {
	URL     string        // Lookup endpoint (defaults to DefaultURL)
	Timeout time.Duration // Per-call timeout (default: 60s)
	HTTP    *http.Client
}

// Client calls the order lookup service
type Client struct {
	config Config
	client *transport.Client
}

// NewClient creates an order lookup client
func NewClient(config Config) *Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	httpClient := config.HTTP
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(config.Timeout)
	}

	return &Client{
		config: config,
		client: transport.New(httpClient, map[string]string{
			"Origin":  "https://autopee.vercel.app",
			"Referer": "https://autopee.vercel.app/",
		}),
	}
}

type lookupRequest struct {
	Cookies []string `json:"cookies"`
}

// Fetch posts the cookies and decodes the per-account order details.
// Any non-success HTTP status is returned as a *transport.StatusError carrying
// the upstream body verbatim.
func (c *Client) Fetch(ctx context.Context, cookies []string) (Batch, error) {
	if len(cookies) == 0 {
		return Batch{}, fmt.Errorf("no cookies to look up")
	}
	if len(cookies) > MaxCookies {
		return Batch{}, fmt.Errorf("too many cookies: %d > %d", len(cookies), MaxCookies)
	}

	body, err := c.client.PostJSON(ctx, c.config.URL, lookupRequest{Cookies: cookies})
	if err != nil {
		return Batch{}, err
	}

	payload, err := fields.Decode(body)
	if err != nil {
		return Batch{}, fmt.Errorf("order lookup: %w: %w", ErrPayload, err)
	}
	return ParseBatch(payload), nil
}
