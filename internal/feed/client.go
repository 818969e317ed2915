// Package feed is the client side of the ratings service: it submits and
// clears ratings, pulls the aggregate, and follows the push feed.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Clark-Hu/rating-pulse/internal/domain"
	"github.com/Clark-Hu/rating-pulse/internal/stream"
)

// DefaultReconnectDelay is the fixed wait between push feed connections.
const DefaultReconnectDelay = 1000 * time.Millisecond

// ErrUnexpectedStatus is returned when the service answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("feed: unexpected status")

// Client talks to the ratings service over HTTP.
type Client struct {
	baseURL *url.URL
	api     *http.Client
	stream  *http.Client
	logger  *log.Logger

	reconnect time.Duration
	after     func(time.Duration) <-chan time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnect = d
		}
	}
}

// WithLogger sets the logger for feed interruptions.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client for the service at baseURL. timeout bounds each
// request-response call and connection setup; the push feed itself has no
// overall deadline.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse service url: %q is not absolute", baseURL)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	c := &Client{
		baseURL:   parsed,
		api:       &http.Client{Timeout: timeout, Transport: transport},
		stream:    &http.Client{Transport: transport},
		logger:    log.Default(),
		reconnect: DefaultReconnectDelay,
		after:     time.After,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type rateRequest struct {
	Value int `json:"value"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Rate submits one rating.
func (c *Client) Rate(ctx context.Context, value int) error {
	body, err := json.Marshal(rateRequest{Value: value})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/rate", body, nil)
}

// Aggregate pulls the current aggregate.
func (c *Client) Aggregate(ctx context.Context) (domain.Aggregate, error) {
	var agg domain.Aggregate
	if err := c.do(ctx, http.MethodGet, "/api/ratings", nil, &agg); err != nil {
		return domain.Aggregate{}, err
	}
	if agg.Events == nil {
		agg.Events = []int64{}
	}
	return agg, nil
}

// Clear deletes every rating.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/ratings", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, dst any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Watch follows the push feed, calling fn with every aggregate received.
// Whenever the connection fails or ends it waits the reconnect delay and
// connects again, forever. Malformed messages are logged and skipped without
// dropping the connection. Watch returns only when ctx is done.
func (c *Client) Watch(ctx context.Context, fn func(domain.Aggregate)) error {
	for {
		err := c.consume(ctx, fn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Printf("feed: stream interrupted: %v; reconnecting in %s", err, c.reconnect)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.after(c.reconnect):
		}
	}
}

func (c *Client) consume(ctx context.Context, fn func(domain.Aggregate)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/stream"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	dec := stream.NewDecoder(resp.Body)
	for {
		var agg domain.Aggregate
		err := dec.Decode(&agg)
		switch {
		case errors.Is(err, stream.ErrMalformedEvent):
			c.logger.Printf("feed: skipping event: %v", err)
			continue
		case errors.Is(err, io.EOF):
			return errors.New("stream closed by server")
		case err != nil:
			return err
		}
		if agg.Events == nil {
			agg.Events = []int64{}
		}
		fn(agg)
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: c.baseURL.Path + path}).String()
}

func statusError(resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err == nil && body.Code != "" {
		return fmt.Errorf("%w %d: %s: %s", ErrUnexpectedStatus, resp.StatusCode, body.Code, body.Message)
	}
	return fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
}
