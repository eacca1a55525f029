package formhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f2dhis2/internal/models"
)

func TestRecordsURL(t *testing.T) {
	got := RecordsURL("https://formhub.org/demo/forms/household/form.json", "abc-123")
	u, err := url.Parse(got)
	require.NoError(t, err)

	assert.Equal(t, "/demo/forms/household/api", u.Path)
	assert.Equal(t, `{"_uuid": "abc-123"}`, u.Query().Get("query"))

	assert.Equal(t, "https://formhub.org/demo/forms/household/api", RecordsURL("https://formhub.org/demo/forms/household/", ""))
}

func TestRecordsURLKeepsIDLiteral(t *testing.T) {
	u, err := url.Parse(RecordsURL("https://formhub.org/demo/forms/household", `a<b>&"c"`))
	require.NoError(t, err)

	assert.Equal(t, `{"_uuid": "a<b>&\"c\""}`, u.Query().Get("query"))
}

func TestFormURL(t *testing.T) {
	assert.Equal(t, "https://formhub.org/demo/forms/x/form.json", FormURL("https://formhub.org/demo/forms/x"))
	assert.Equal(t, "https://formhub.org/demo/forms/x/form.json", FormURL("https://formhub.org/demo/forms/x/"))
	assert.Equal(t, "https://formhub.org/demo/forms/x/form.json", FormURL("https://formhub.org/demo/forms/x/form.json"))
}

func TestFetch(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/forms/household/api", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_uuid":"abc","location":"OU1","count":12,"ratio":0.50}, "stray", 7]`))
	}))
	defer server.Close()

	client := NewClient(Config{AccessToken: "tok"})
	service := &models.Service{URL: server.URL + "/demo/forms/household/form.json"}

	records, err := client.Fetch(context.Background(), service, "abc")
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, `{"_uuid": "abc"}`, gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)

	rec := records[0]
	location, ok := rec.String("location")
	assert.True(t, ok)
	assert.Equal(t, "OU1", location)
	assert.Equal(t, json.Number("12"), rec["count"])
	assert.Equal(t, "0.50", models.FormatValue(rec["ratio"]))
}

func TestFetchSoftFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"detail":"not found"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"object document", http.StatusOK, `{"detail":"no records"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			records, err := NewClient(Config{}).Fetch(context.Background(), &models.Service{URL: server.URL}, "abc")
			assert.NoError(t, err)
			assert.Nil(t, records)
		})
	}
}

func TestFetchMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_uuid":`))
	}))
	defer server.Close()

	_, err := NewClient(Config{}).Fetch(context.Background(), &models.Service{URL: server.URL}, "abc")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.URL, "/api")
}

func TestFetchUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serviceURL := server.URL
	server.Close()

	_, err := NewClient(Config{Timeout: time.Second}).Fetch(context.Background(), &models.Service{URL: serviceURL}, "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))

	var unavailable *UnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewClient(Config{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), &models.Service{URL: server.URL}, "abc")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/forms/household/form.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id_string":"household","name":"household","title":"Household survey","children":[{"name":"location","type":"text","label":"Location"}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{})

	form, err := client.LoadForm(context.Background(), server.URL+"/demo/forms/household")
	require.NoError(t, err)
	assert.Equal(t, "household", form.IDString)
	assert.Equal(t, "Household survey", form.Title)
	assert.Equal(t, server.URL+"/demo/forms/household/form.json", form.URL)
	assert.NotEmpty(t, form.Raw)

	_, err = client.LoadForm(context.Background(), server.URL+"/missing")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestLoadFormWithoutIDString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"nameless"}`))
	}))
	defer server.Close()

	_, err := NewClient(Config{}).LoadForm(context.Background(), server.URL)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}
