// Package providers holds the HTTP plumbing shared by the market-data,
// central-bank and GitHub adapters in its subpackages.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every provider call that does not carry its own deadline.
const DefaultTimeout = 20 * time.Second

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 2048

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// NewHTTPClient returns a client with DefaultTimeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// GetJSON performs a GET and decodes a 2xx JSON body into out. Non-2xx
// responses become *StatusError.
func GetJSON(ctx context.Context, client *http.Client, provider, rawURL string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", provider, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if err := CheckStatus(provider, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", provider, err)
	}
	return nil
}

// CheckStatus turns a non-2xx response into *StatusError, reading a bounded
// prefix of the body for the message.
func CheckStatus(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
}
