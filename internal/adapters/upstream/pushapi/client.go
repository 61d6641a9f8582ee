// Package pushapi is the HTTP client for the push-notification service.
package pushapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coregym/member-card-api/internal/adapters/upstream/jsonclient"
	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/pushapi"
)

const service = "push-api"

type Client struct {
	c *jsonclient.Client
}

var _ pushapi.Client = (*Client)(nil)

func New(baseURL string, hc *http.Client) (*Client, error) {
	c, err := jsonclient.New(jsonclient.Options{Service: service, BaseURL: baseURL, HTTPClient: hc})
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

type sendRequest struct {
	MemberID domain.MemberID `json:"memberId"`
	Title    string          `json:"title"`
	Body     string          `json:"body"`
	SendAt   string          `json:"sendAt,omitempty"`
}

func (p *Client) GetSubscription(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return p.c.Get(ctx, p.c.URL(nil, "member", string(id), "subscription"))
}

func (p *Client) Send(ctx context.Context, n pushapi.Notification) (pushapi.Delivery, error) {
	return p.post(ctx, "send", sendRequest{MemberID: n.MemberID, Title: n.Title, Body: n.Body})
}

func (p *Client) Schedule(ctx context.Context, n pushapi.Notification) (pushapi.Delivery, error) {
	return p.post(ctx, "schedule", sendRequest{
		MemberID: n.MemberID,
		Title:    n.Title,
		Body:     n.Body,
		SendAt:   n.SendAt.UTC().Format(time.RFC3339),
	})
}

func (p *Client) post(ctx context.Context, endpoint string, body sendRequest) (pushapi.Delivery, error) {
	raw, err := p.c.Do(ctx, http.MethodPost, p.c.URL(nil, endpoint), body)
	if err != nil {
		return pushapi.Delivery{}, err
	}
	return decodeDelivery(raw)
}

// decodeDelivery reads "sent", falling back to "success".
func decodeDelivery(raw json.RawMessage) (pushapi.Delivery, error) {
	var v struct {
		Sent    *bool `json:"sent"`
		Success *bool `json:"success"`
	}
	if err := jsonclient.DecodeInto(service, raw, &v); err != nil {
		return pushapi.Delivery{}, err
	}
	d := pushapi.Delivery{Raw: raw}
	switch {
	case v.Sent != nil:
		d.Accepted = *v.Sent
	case v.Success != nil:
		d.Accepted = *v.Success
	}
	return d, nil
}
