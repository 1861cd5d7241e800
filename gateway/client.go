// Package gateway holds the HTTP clients for the two external services the
// engine drives: the match execution service and the reward ledger.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 10 * time.Second

// MatchEngineClient asks the match execution service to simulate a match.
// The engine treats failures as transient: the catch-up sweep retries starts
// that never reached the simulator.
type MatchEngineClient struct {
	baseURL string
	client  *http.Client
}

func NewMatchEngineClient(baseURL string) *MatchEngineClient {
	return &MatchEngineClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (c *MatchEngineClient) StartMatch(ctx context.Context, matchID int) error {
	url := fmt.Sprintf("%s/matches/%d/start", c.baseURL, matchID)
	return postJSON(ctx, c.client, url, nil)
}

// LedgerClient credits tournament payouts to team wallets. The caller
// guarantees at-most-once semantics through grant reservations; this client
// only has to deliver the request.
type LedgerClient struct {
	baseURL string
	client  *http.Client
}

func NewLedgerClient(baseURL string) *LedgerClient {
	return &LedgerClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (c *LedgerClient) GrantReward(ctx context.Context, teamID, credits, gems int) error {
	url := fmt.Sprintf("%s/teams/%d/rewards", c.baseURL, teamID)
	payload := map[string]int{"credits": credits, "gems": gems}
	return postJSON(ctx, c.client, url, payload)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}
