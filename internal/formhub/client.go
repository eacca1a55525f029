// Package formhub talks to a Formhub server: it loads form descriptors and
// fetches submitted records.
package formhub

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"f2dhis2/internal/models"
)

const (
	formSuffix      = "/form.json"
	maxResponseSize = 32 << 20
)

// Config configures a Client.
type Config struct {
	// AccessToken is sent as a bearer token when set.
	AccessToken string
	Timeout     time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int
	// Transport allows injecting a custom HTTP transport.
	Transport http.RoundTripper
}

// Client is a rate-limited Formhub HTTP client.
type Client struct {
	config      Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a new Formhub client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		rateLimiter: rate.NewLimiter(limit, cfg.RateBurst),
	}
}

// RecordsURL builds the query URL for one submission of a service. An empty
// recordID queries every submission.
func RecordsURL(serviceURL, recordID string) string {
	base := strings.TrimSuffix(strings.TrimRight(serviceURL, "/"), formSuffix)
	endpoint := base + "/api"
	if recordID == "" {
		return endpoint
	}
	var id bytes.Buffer
	enc := json.NewEncoder(&id)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(recordID)
	query := url.Values{"query": {fmt.Sprintf(`{"_uuid": %s}`, bytes.TrimRight(id.Bytes(), "\n"))}}
	return endpoint + "?" + query.Encode()
}

// FormURL returns the form.json URL for a form page URL.
func FormURL(serviceURL string) string {
	u := strings.TrimRight(serviceURL, "/")
	if strings.HasSuffix(u, formSuffix) {
		return u
	}
	return u + formSuffix
}

// Fetch retrieves the records of one submission. A non-200 answer means the
// data is not there yet and yields no records and no error.
func (c *Client) Fetch(ctx context.Context, service *models.Service, recordID string) ([]models.Record, error) {
	endpoint := RecordsURL(service.URL, recordID)

	status, body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, nil
	}
	return decodeRecords(endpoint, body)
}

// LoadForm downloads and parses a form descriptor.
func (c *Client) LoadForm(ctx context.Context, formURL string) (*Form, error) {
	endpoint := FormURL(formURL)

	status, body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{URL: endpoint, StatusCode: status}
	}
	form, err := ParseForm(body)
	if err != nil {
		return nil, &ParseError{URL: endpoint, Err: err}
	}
	form.URL = endpoint
	return form, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (int, []byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, nil, &UnavailableError{URL: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create formhub request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &UnavailableError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, &UnavailableError{URL: endpoint, Err: err}
	}
	return resp.StatusCode, body, nil
}

func decodeRecords(endpoint string, body []byte) ([]models.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{URL: endpoint, Err: err}
	}

	items, ok := doc.([]interface{})
	if !ok {
		return nil, nil
	}
	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			records = append(records, models.Record(obj))
		}
	}
	return records, nil
}
