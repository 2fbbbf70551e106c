package ekss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvelope_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/secrets/secret-1/envelopes/client-key", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("envelope-bytes"))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	content, err := client.GetEnvelope(context.Background(), "secret-1", "client-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("envelope-bytes"), content)
}

func TestGetEnvelope_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	_, err := client.GetEnvelope(context.Background(), "missing", "client-key")
	require.ErrorIs(t, err, ErrSecretNotFound)
}

func TestGetEnvelope_BadResponseCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	_, err := client.GetEnvelope(context.Background(), "secret-1", "client-key")
	require.ErrorIs(t, err, ErrBadResponseCode)
}

func TestDeleteSecret_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/secrets/secret-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	require.NoError(t, client.DeleteSecret(context.Background(), "secret-1"))
}

func TestDeleteSecret_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	err := client.DeleteSecret(context.Background(), "secret-1")
	require.ErrorIs(t, err, ErrSecretNotFound)
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "ok", outcomeLabel(nil))
	assert.Equal(t, "not_found", outcomeLabel(ErrSecretNotFound))
	assert.Equal(t, "error", outcomeLabel(ErrBadResponseCode))
}
