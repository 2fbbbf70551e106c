// Package ekss is the Envelope Client: the HTTP adapter over the external
// Encryption Key Store Service, which holds per-file Crypt4GH envelopes and
// decryption secrets. Calls are wrapped in a sony/gobreaker circuit breaker
// so a flapping EKSS trips the breaker instead of piling up blocked
// goroutines behind a slow downstream, the same defensive pattern the
// jordigilh-kubernaut notification controller wraps its delivery channels in.
package ekss

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ghga-de/dcs-go/internal/obsmetrics"
)

// ErrSecretNotFound means EKSS has no envelope/secret for the given ID —
// the one EKSS failure mode the core is allowed to swallow during delete_file.
var ErrSecretNotFound = errors.New("secret not found in ekss")

// ErrRequestFailed covers transport-level failures (no response at all).
var ErrRequestFailed = errors.New("request to ekss failed")

// ErrBadResponseCode covers any non-2xx, non-404 response.
var ErrBadResponseCode = errors.New("unexpected response code from ekss")

// Client talks to the Encryption Key Store Service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New builds a Client whose requests time out after timeout and whose
// circuit trips after 3 consecutive failures, resetting after 30s.
func New(baseURL string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ekss",
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[EKSS] circuit breaker %q: %s -> %s", name, from, to)
		},
	})

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

// GetEnvelope asks EKSS to re-encrypt secretID's envelope for clientPublicKey
// (base64-encoded Crypt4GH X25519 public key), returning the raw base64
// envelope bytes EKSS responds with.
func (c *Client) GetEnvelope(ctx context.Context, secretID, clientPublicKey string) ([]byte, error) {
	url := fmt.Sprintf("%s/secrets/%s/envelopes/%s", c.baseURL, secretID, clientPublicKey)
	start := time.Now()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build envelope request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)

		switch resp.StatusCode {
		case http.StatusOK:
			return body, nil
		case http.StatusNotFound:
			return nil, ErrSecretNotFound
		default:
			return nil, fmt.Errorf("%w: status %d", ErrBadResponseCode, resp.StatusCode)
		}
	})
	obsmetrics.ObserveEKSSCall("get_envelope", outcomeLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// outcomeLabel collapses an EKSS call's error into the small set of
// Prometheus label values the call-duration histogram is bucketed by.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSecretNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// deleteSecretRequest is sent to instruct EKSS to drop a decryption secret
// once its file has been fully deleted.
type deleteSecretRequest struct {
	SecretID string `json:"secret_id"`
}

// DeleteSecret removes secretID from EKSS. Per the delete_file operation's
// documented behavior, a 404 here (ErrSecretNotFound) is not escalated by
// the caller — the secret is already gone, which is the desired end state.
func (c *Client) DeleteSecret(ctx context.Context, secretID string) error {
	url := fmt.Sprintf("%s/secrets/%s", c.baseURL, secretID)
	start := time.Now()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		payload, err := json.Marshal(deleteSecretRequest{SecretID: secretID})
		if err != nil {
			return nil, fmt.Errorf("marshal delete secret request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build delete secret request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusNoContent:
			return nil, nil
		case http.StatusNotFound:
			return nil, ErrSecretNotFound
		default:
			return nil, fmt.Errorf("%w: status %d", ErrBadResponseCode, resp.StatusCode)
		}
	})

	obsmetrics.ObserveEKSSCall("delete_secret", outcomeLabel(err), time.Since(start))
	return err
}
