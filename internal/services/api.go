// Shared JSON-over-HTTP plumbing for the upstream providers
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/albumsync/internal/shared"
)

// APIError is a non-2xx response from an upstream provider.
//
// It matches [shared.ErrProvider], and additionally [shared.ErrServiceUnavailable] for gateway and
// availability failures.
type APIError struct {
	Service    string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s API error: status %d", e.Service, e.StatusCode)
}

func (e *APIError) Unwrap() []error {
	switch e.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return []error{shared.ErrProvider, shared.ErrServiceUnavailable}
	default:
		return []error{shared.ErrProvider}
	}
}

// doJSON sends body (if any) as JSON and decodes a 2xx response into result (if any).
//
// Transport, status and decode failures all wrap [shared.ErrProvider].
func doJSON(ctx context.Context, client *http.Client, service, method, url string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s request failed: %w", shared.ErrProvider, service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Service: service, StatusCode: resp.StatusCode, Detail: errorDetail(resp.Body)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode %s response: %w", shared.ErrProvider, service, err)
		}
	}

	return nil
}

// errorDetail extracts the first of detail, error or message from an error body.
func errorDetail(r io.Reader) string {
	var body struct {
		Detail  string `json:"detail"`
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil {
		return ""
	}

	switch {
	case body.Detail != "":
		return body.Detail
	case body.Message != "":
		return body.Message
	}

	switch v := body.Error.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return ""
}

// IsUnavailable reports whether err came from a provider that is down rather than one that refused.
func IsUnavailable(err error) bool {
	return errors.Is(err, shared.ErrServiceUnavailable)
}
