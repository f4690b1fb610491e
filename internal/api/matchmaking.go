package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"wc3stats/internal/config"

	"github.com/valyala/fasthttp"
)

// MatchmakingClient pulls finished matches from the matchmaking service for
// reconciliation backfill. Matches fetched this way become events with
// WasFromSync set.
type MatchmakingClient struct {
	baseURL string
	client  *fasthttp.Client
}

type FinishedMatchesResponse struct {
	Matches []MatchDTO `json:"matches"`
	Count   int        `json:"count"`
}

func NewMatchmakingClient(cfg *config.Config) *MatchmakingClient {
	return &MatchmakingClient{
		baseURL: cfg.MatchmakingAPIURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// GetFinishedMatches pages through finished matches, oldest first.
func (c *MatchmakingClient) GetFinishedMatches(ctx context.Context, offset, limit int) (*FinishedMatchesResponse, error) {
	url := fmt.Sprintf("%s/matches?state=finished&offset=%d&limit=%d", c.baseURL, offset, limit)
	return doJSON[FinishedMatchesResponse](ctx, c, url)
}

func doJSON[T any](ctx context.Context, c *MatchmakingClient, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	var err error
	if ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("matchmaking request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("matchmaking request returned status %d", resp.StatusCode())
	}

	var out T
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode matchmaking response: %w", err)
	}
	return &out, nil
}
