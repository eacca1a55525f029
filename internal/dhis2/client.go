// Package dhis2 renders Formhub records as DHIS2 dataValueSet documents and
// talks to the DHIS2 web API.
package dhis2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"f2dhis2/internal/models"
)

const maxResponseSize = 8 << 20

// ErrPublishFailure marks a dataValueSet that DHIS2 did not accept, either
// because it could not be reached or because it answered with a non-2xx status.
var ErrPublishFailure = errors.New("dhis2 publish failed")

// PublishError is returned for a non-2xx answer.
type PublishError struct {
	StatusCode int
	Body       string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("dhis2 returned status %d: %s", e.StatusCode, e.Body)
}

func (e *PublishError) Unwrap() error {
	return ErrPublishFailure
}

// Response is the raw answer of the DHIS2 import endpoint.
type Response struct {
	StatusCode int
	Body       []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Config configures a Client.
type Config struct {
	// DataValueSetURL is the fixed import endpoint, e.g. https://dhis/api/dataValueSets.
	DataValueSetURL string
	Username        string
	Password        string
	Timeout         time.Duration
	Transport       http.RoundTripper
}

// Client publishes data value sets and reads data set metadata with static
// Basic credentials.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new DHIS2 client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			// DHIS2 answers bad credentials with a redirect to its login page.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Publish POSTs a rendered dataValueSet. It never retries.
func (c *Client) Publish(ctx context.Context, payload []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.DataValueSetURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create dhis2 request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublishFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrPublishFailure, err)
	}

	out := &Response{StatusCode: resp.StatusCode, Body: body}
	if !out.IsSuccess() {
		return out, &PublishError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return out, nil
}

// DataSetDescriptor is a data set as described by the DHIS2 metadata API.
type DataSetDescriptor struct {
	ID           string
	Name         string
	PeriodType   string
	URL          string
	DataElements []DataElementDescriptor
}

// DataElementDescriptor is one data element of a data set.
type DataElementDescriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type dataSetJSON struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	DisplayName     string                  `json:"displayName"`
	PeriodType      string                  `json:"periodType"`
	DataElements    []DataElementDescriptor `json:"dataElements"`
	DataSetElements []struct {
		DataElement DataElementDescriptor `json:"dataElement"`
	} `json:"dataSetElements"`
}

// LoadDataSet reads a data set and its data elements. ".json" is appended
// to dataSetURL when missing.
func (c *Client) LoadDataSet(ctx context.Context, dataSetURL string) (*DataSetDescriptor, error) {
	endpoint := strings.TrimRight(dataSetURL, "/")
	if !strings.HasSuffix(endpoint, ".json") {
		endpoint += ".json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create dhis2 request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call dhis2 at %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dhis2 returned non-OK status: %d for %s", resp.StatusCode, endpoint)
	}

	var raw dataSetJSON
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode data set from %s: %w", endpoint, err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("data set at %s has no id", endpoint)
	}

	ds := &DataSetDescriptor{
		ID:           raw.ID,
		Name:         raw.Name,
		PeriodType:   raw.PeriodType,
		URL:          strings.TrimSuffix(endpoint, ".json"),
		DataElements: raw.DataElements,
	}
	if ds.Name == "" {
		ds.Name = raw.DisplayName
	}
	if len(ds.DataElements) == 0 {
		for _, dse := range raw.DataSetElements {
			ds.DataElements = append(ds.DataElements, dse.DataElement)
		}
	}
	return ds, nil
}

// Frequency maps a DHIS2 period type onto the reporting frequencies the
// period resolver knows. Other period types report daily.
func (d *DataSetDescriptor) Frequency() models.Frequency {
	f := models.Frequency(d.PeriodType)
	if models.ValidFrequencies[f] {
		return f
	}
	log.Printf("Data set %s has period type %q, reporting daily", d.ID, d.PeriodType)
	return models.FrequencyDaily
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
