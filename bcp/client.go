// Package bcp is a thin client for the BCP-style pairings provider API the
// rounds are imported from.
package bcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
)

const DefaultBaseURL = "https://api.bestcoastpairings.com/v1"

// Client talks to the pairings provider. Responses are cached in memory
// (the provider serves identical payloads for already-posted rounds).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   15 * time.Second,
		},
	}
}

// PlayerRef identifies one side of a provider pairing.
type PlayerRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RoundScore int    `json:"roundScore"`
	TotalScore int    `json:"totalScore"`
}

// Pairing is one pairing as vended by the provider. Player2 is null for a
// bye; TableNumber is the provider's proposed table, null when not posted.
type Pairing struct {
	Player1     PlayerRef  `json:"player1"`
	Player2     *PlayerRef `json:"player2"`
	TableNumber *int       `json:"tableNumber"`
	RoundNumber int        `json:"roundNumber"`
}

type pairingsResponse struct {
	Pairings []Pairing `json:"pairings"`
}

// GetRoundPairings fetches the posted pairings of one round of an event.
func (c *Client) GetRoundPairings(ctx context.Context, eventID string, round int) ([]Pairing, error) {
	url := fmt.Sprintf("%s/events/%s/rounds/%d/pairings", c.baseURL, eventID, round)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build pairings request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch pairings for event %s round %d: %w", eventID, round, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pairings request for event %s round %d returned status %d: %s",
			eventID, round, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed pairingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("unable to decode pairings response: %w", err)
	}
	return parsed.Pairings, nil
}
