// Package github triggers repository_dispatch events on GitHub.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dvloznov/carteira/internal/providers"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

// EventFetchHistoricalData is the event type the refresh workflow listens for.
const EventFetchHistoricalData = "fetch-historical-data"

// DispatchError is returned when GitHub does not answer 204.
type DispatchError struct {
	StatusCode int
	Body       string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("GitHub API error: %d - %s", e.StatusCode, e.Body)
}

// Dispatcher sends repository_dispatch events to one repository.
type Dispatcher struct {
	baseURL string
	token   string
	owner   string
	repo    string
	http    *http.Client
}

// NewDispatcher creates a dispatcher. Empty baseURL selects DefaultBaseURL.
func NewDispatcher(baseURL, token, owner, repo string, httpClient *http.Client) *Dispatcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = providers.NewHTTPClient()
	}
	return &Dispatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		owner:   owner,
		repo:    repo,
		http:    httpClient,
	}
}

type dispatchRequest struct {
	EventType     string      `json:"event_type"`
	ClientPayload interface{} `json:"client_payload"`
}

// DispatchHistoricalFetch asks the workflow to fetch symbol over rangeKey.
func (d *Dispatcher) DispatchHistoricalFetch(ctx context.Context, symbol, rangeKey string) error {
	return d.Dispatch(ctx, EventFetchHistoricalData, map[string]string{
		"symbol": symbol,
		"range":  rangeKey,
	})
}

// Dispatch sends one event. GitHub answers 204 No Content on success.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(dispatchRequest{EventType: eventType, ClientPayload: payload})
	if err != nil {
		return fmt.Errorf("Dispatch: encoding payload: %w", err)
	}

	u := fmt.Sprintf("%s/repos/%s/%s/dispatches", d.baseURL, d.owner, d.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Dispatch: building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "token "+d.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Carteira-App")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("Dispatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &DispatchError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	return nil
}
