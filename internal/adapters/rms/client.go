package rms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"crewcall/internal/domain"
)

// DefaultTimeout bounds a single call to the resource-booking system. The event row lock is
// held while a tentative move is in flight, so calls must not hang.
const DefaultTimeout = 5 * time.Second

type moveRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type reserveResponse struct {
	Changed bool `json:"changed"`
}

type httpGateway struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewHTTPGateway returns a ConflictGateway that calls the resource-booking system's HTTP API.
// An empty baseURL returns a gateway that accepts every move without calling out.
func NewHTTPGateway(client *http.Client, baseURL, apiKey string) domain.ConflictGateway {
	if baseURL == "" {
		return noopGateway{}
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &httpGateway{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (g *httpGateway) CheckAndReserve(ctx context.Context, projectID string, start, end time.Time) (domain.ReserveResult, error) {
	var out reserveResponse
	if err := g.post(ctx, projectID, "delivery-window", moveRequest{Start: start.UTC(), End: end.UTC()}, &out); err != nil {
		return domain.ReserveResult{}, err
	}
	return domain.ReserveResult{Changed: out.Changed}, nil
}

func (g *httpGateway) Commit(ctx context.Context, projectID string, start, end time.Time) error {
	return g.post(ctx, projectID, "dates", moveRequest{Start: start.UTC(), End: end.UTC()}, nil)
}

func (g *httpGateway) post(ctx context.Context, projectID, action string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/projects/%s/%s", g.baseURL, url.PathEscape(projectID), action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call resource-booking system: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("resource-booking system returned status %d for project %s: %s", resp.StatusCode, projectID, bytes.TrimSpace(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode resource-booking response: %w", err)
	}
	return nil
}

// noopGateway is used when no resource-booking system is configured.
type noopGateway struct{}

func (noopGateway) CheckAndReserve(ctx context.Context, projectID string, start, end time.Time) (domain.ReserveResult, error) {
	return domain.ReserveResult{Changed: true}, nil
}

func (noopGateway) Commit(ctx context.Context, projectID string, start, end time.Time) error {
	return nil
}
