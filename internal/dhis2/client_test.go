package dhis2

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f2dhis2/internal/models"
)

func TestPublish(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/dataValueSets", r.URL.Path)
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "district", pass)
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`<importSummary><status>SUCCESS</status></importSummary>`))
	}))
	defer server.Close()

	client := NewClient(Config{DataValueSetURL: server.URL + "/api/dataValueSets", Username: "admin", Password: "district"})

	resp, err := client.Publish(context.Background(), []byte("<dataValueSet/>"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.Contains(t, string(resp.Body), "SUCCESS")
	assert.Equal(t, "<dataValueSet/>", string(gotBody))
}

func TestPublishRejected(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusUnauthorized, http.StatusInternalServerError, http.StatusFound} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if status == http.StatusFound {
				// A redirect to the login page is not an import.
				w.Header().Set("Location", "/dhis-web-commons/security/login.action")
				w.WriteHeader(status)
				return
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte("rejected"))
		}))

		client := NewClient(Config{DataValueSetURL: server.URL})

		resp, err := client.Publish(context.Background(), []byte("<dataValueSet/>"))
		require.Error(t, err, "status %d", status)
		assert.ErrorIs(t, err, ErrPublishFailure)

		var publishErr *PublishError
		require.ErrorAs(t, err, &publishErr)
		assert.Equal(t, status, publishErr.StatusCode)
		require.NotNil(t, resp)
		assert.False(t, resp.IsSuccess())

		server.Close()
	}
}

func TestPublishLoginRedirectIsNotSuccess(t *testing.T) {
	var loginHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dataValueSets", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dhis-web-commons/security/login.action", http.StatusFound)
	})
	mux.HandleFunc("/dhis-web-commons/security/login.action", func(w http.ResponseWriter, r *http.Request) {
		loginHits++
		_, _ = w.Write([]byte("<html>login</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(Config{DataValueSetURL: server.URL + "/api/dataValueSets", Username: "admin", Password: "wrong"})

	resp, err := client.Publish(context.Background(), []byte("<dataValueSet/>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPublishFailure)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, 0, loginHits, "redirect is not followed")
}

func TestPublishUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	resp, err := NewClient(Config{DataValueSetURL: target, Timeout: time.Second}).Publish(context.Background(), nil)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, ErrPublishFailure))

	var publishErr *PublishError
	assert.False(t, errors.As(err, &publishErr))
}

func TestLoadDataSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		assert.Equal(t, "admin", user)
		switch r.URL.Path {
		case "/api/dataSets/pBOMPrpg1QX.json":
			_, _ = w.Write([]byte(`{"id":"pBOMPrpg1QX","name":"Malaria","periodType":"Monthly",
				"dataElements":[{"id":"fbfJHSPpUQD","name":"Cases"},{"id":"cYeuwXTCPkU","name":"Deaths"}]}`))
		case "/api/dataSets/QX4ZTUbOt3a.json":
			_, _ = w.Write([]byte(`{"id":"QX4ZTUbOt3a","displayName":"Reproductive health","periodType":"Quarterly",
				"dataSetElements":[{"dataElement":{"id":"x3Do5e7g4Qo","name":"ANC visits"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(Config{Username: "admin", Password: "district"})

	ds, err := client.LoadDataSet(context.Background(), server.URL+"/api/dataSets/pBOMPrpg1QX")
	require.NoError(t, err)
	assert.Equal(t, "pBOMPrpg1QX", ds.ID)
	assert.Equal(t, "Malaria", ds.Name)
	assert.Equal(t, models.FrequencyMonthly, ds.Frequency())
	assert.Equal(t, server.URL+"/api/dataSets/pBOMPrpg1QX", ds.URL)
	assert.Equal(t, []DataElementDescriptor{{ID: "fbfJHSPpUQD", Name: "Cases"}, {ID: "cYeuwXTCPkU", Name: "Deaths"}}, ds.DataElements)

	ds, err = client.LoadDataSet(context.Background(), server.URL+"/api/dataSets/QX4ZTUbOt3a.json")
	require.NoError(t, err)
	assert.Equal(t, "Reproductive health", ds.Name)
	assert.Equal(t, models.FrequencyDaily, ds.Frequency())
	assert.Equal(t, []DataElementDescriptor{{ID: "x3Do5e7g4Qo", Name: "ANC visits"}}, ds.DataElements)

	_, err = client.LoadDataSet(context.Background(), server.URL+"/api/dataSets/unknown")
	assert.ErrorContains(t, err, "404")
}
