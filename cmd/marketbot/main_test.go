package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func backend(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("BACKEND_BASE_URL", srv.URL)
}

func TestListingsPrintsFeed(t *testing.T) {
	backend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/listings" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `[{"id":1,"user_telegram_id":42,"description":"Free couch\nbarely used"}]`)
	})

	out, err := execute(t, "listings")
	require.NoError(t, err)
	require.Contains(t, out, "DESCRIPTION")
	require.Contains(t, out, "Free couch barely used")
	require.Contains(t, out, "42")
}

func TestListingsEmpty(t *testing.T) {
	backend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	out, err := execute(t, "listings")
	require.NoError(t, err)
	require.Equal(t, "no listings\n", out)
}

func TestPublishPostsListing(t *testing.T) {
	got := make(chan map[string]any, 1)
	backend(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- body
		w.WriteHeader(http.StatusCreated)
	})

	out, err := execute(t, "publish", "--user", "123", "--description", "Lamp")
	require.NoError(t, err)
	require.Equal(t, "published\n", out)

	body := <-got
	require.Equal(t, float64(123), body["user_telegram_id"])
	require.Equal(t, "Lamp", body["description"])
}

func TestPublishValidatesFlags(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	_, err := execute(t, "publish", "--description", "Lamp")
	require.Error(t, err)

	_, err = execute(t, "publish", "--user", "5")
	require.Error(t, err)
}

func TestPublishReportsBackendFailure(t *testing.T) {
	backend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := execute(t, "publish", "--user", "1", "--description", "x")
	require.ErrorContains(t, err, "502")
}
