// Package statsapi is the HTTP client for the stats service.
package statsapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coregym/member-card-api/internal/adapters/upstream/jsonclient"
	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/statsapi"
)

// Client implements statsapi.Client. The stats service is public and gets no credentials.
type Client struct {
	c *jsonclient.Client
}

var _ statsapi.Client = (*Client)(nil)

func New(baseURL string, hc *http.Client) (*Client, error) {
	c, err := jsonclient.New(jsonclient.Options{Service: "stats-api", BaseURL: baseURL, HTTPClient: hc})
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

func (s *Client) get(ctx context.Context, id domain.MemberID, resource string) (json.RawMessage, error) {
	return s.c.Get(ctx, s.c.URL(nil, "member", string(id), resource))
}

func (s *Client) GetStats(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return s.get(ctx, id, "stats")
}

func (s *Client) GetOnboarding(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return s.get(ctx, id, "onboarding")
}

func (s *Client) GetPrefs(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return s.get(ctx, id, "prefs")
}

func (s *Client) GetHistory(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return s.get(ctx, id, "history")
}

func (s *Client) UpdatePrefs(ctx context.Context, id domain.MemberID, prefs domain.Preferences) (json.RawMessage, error) {
	if prefs == nil {
		prefs = domain.Preferences{}
	}
	return s.c.Do(ctx, http.MethodPut, s.c.URL(nil, "member", string(id), "prefs"), prefs)
}
