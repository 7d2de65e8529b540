package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/projectwatch/internal/model"
	"github.com/civicworks/projectwatch/internal/secrets"
)

func apiSource(endpoint string, auth model.AuthMethod) model.SourceDefinition {
	return model.SourceDefinition{
		ID:       "api-src",
		Strategy: model.StrategyAPI,
		Auth:     auth,
		Endpoint: endpoint,
	}
}

func TestAPIFetcherBearerAuth(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[{"project_id":"P1","name":"Bridge"}]`)
	}))
	defer ts.Close()

	sec := secrets.Static{Keys: map[string]string{"api-src": "tok-42"}}
	f := NewAPIFetcher(sec, APIOptions{})

	records, err := f.Fetch(context.Background(), apiSource(ts.URL, model.AuthAPIKey))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "P1", records[0]["project_id"])
	assert.Equal(t, "Bearer tok-42", gotAuth)
}

func TestAPIFetcherBasicAuth(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"records":[{"project_id":"P1"}]}`)
	}))
	defer ts.Close()

	sec := secrets.Static{
		Usernames: map[string]string{"api-src": "svc"},
		Passwords: map[string]string{"api-src": "pw"},
	}
	f := NewAPIFetcher(sec, APIOptions{})

	records, err := f.Fetch(context.Background(), apiSource(ts.URL, model.AuthBasic))
	require.NoError(t, err)
	require.Len(t, records, 1)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("svc:pw"))
	assert.Equal(t, want, gotAuth)
}

func TestAPIFetcherNoAuthHeader(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[]`)
	}))
	defer ts.Close()

	f := NewAPIFetcher(secrets.Static{}, APIOptions{})
	_, err := f.Fetch(context.Background(), apiSource(ts.URL, model.AuthNone))
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestAPIFetcherMissingEndpoint(t *testing.T) {
	f := NewAPIFetcher(secrets.Static{}, APIOptions{})
	_, err := f.Fetch(context.Background(), apiSource("", model.AuthNone))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no endpoint configured")
}

func TestAPIFetcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[{"project_id":"P1"}]`)
	}))
	defer ts.Close()

	f := NewAPIFetcher(secrets.Static{}, APIOptions{MaxRetries: 3})
	records, err := f.Fetch(context.Background(), apiSource(ts.URL, model.AuthNone))
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIFetcherNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	f := NewAPIFetcher(secrets.Static{}, APIOptions{MaxRetries: 3})
	_, err := f.Fetch(context.Background(), apiSource(ts.URL, model.AuthNone))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
