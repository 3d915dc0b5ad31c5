// Package registry is the HTTP client for the match registry resource,
// used by lobby and result screens outside the realtime channel.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a registry client. token is the opaque bearer credential,
// empty to skip authentication.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetMatch fetches one match record by ID.
func (c *Client) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/matches/"+matchID, nil)
	if err != nil {
		return domain.Match{}, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Match{}, fmt.Errorf("fetch match %s: %w", matchID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Match{}, fmt.Errorf("fetch match %s: unexpected status %d", matchID, resp.StatusCode)
	}

	var match domain.Match
	if err := json.NewDecoder(resp.Body).Decode(&match); err != nil {
		return domain.Match{}, fmt.Errorf("decode match %s: %w", matchID, err)
	}
	return match, nil
}
