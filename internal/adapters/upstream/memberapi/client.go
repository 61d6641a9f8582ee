// Package memberapi is the HTTP client for the member service.
package memberapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coregym/member-card-api/internal/adapters/upstream/jsonclient"
	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
	"github.com/coregym/member-card-api/internal/ports/out/upstream"
)

const service = "member-api"

// Client implements memberapi.Client over HTTP. Calls forward the caller's session cookie,
// except receipt sending, which the member service accepts without credentials.
type Client struct {
	c     *jsonclient.Client
	plain *jsonclient.Client
}

var _ memberapi.Client = (*Client)(nil)

func New(baseURL string, hc *http.Client) (*Client, error) {
	c, err := jsonclient.New(jsonclient.Options{
		Service:      service,
		BaseURL:      baseURL,
		HTTPClient:   hc,
		Credentialed: true,
	})
	if err != nil {
		return nil, err
	}
	plain, err := jsonclient.New(jsonclient.Options{
		Service:    service,
		BaseURL:    baseURL,
		HTTPClient: hc,
	})
	if err != nil {
		return nil, err
	}
	return &Client{c: c, plain: plain}, nil
}

func (m *Client) GetProfile(ctx context.Context, id domain.MemberID) (memberapi.Profile, error) {
	raw, err := m.c.Get(ctx, m.c.URL(nil, "member", string(id)))
	if err != nil {
		return memberapi.Profile{}, err
	}
	// A 2xx without a profile means the member does not exist.
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return memberapi.Profile{}, &upstream.StatusError{Service: service, Status: http.StatusNotFound}
	}
	var p memberapi.Profile
	if err := jsonclient.DecodeInto(service, raw, &p); err != nil {
		return memberapi.Profile{}, err
	}
	return p, nil
}

func (m *Client) GetAccess(ctx context.Context, id domain.MemberID) (memberapi.Access, error) {
	raw, err := m.c.Get(ctx, m.c.URL(nil, "member", string(id), "access"))
	if err != nil {
		return memberapi.Access{}, err
	}
	var a memberapi.Access
	if err := jsonclient.DecodeInto(service, raw, &a); err != nil {
		return memberapi.Access{}, err
	}
	return a, nil
}

func (m *Client) GetJournal(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return m.c.Get(ctx, m.c.URL(nil, "member", string(id), "journal"))
}

func (m *Client) AddJournalEntry(ctx context.Context, id domain.MemberID, in memberapi.JournalEntryInput) (json.RawMessage, error) {
	return m.c.Do(ctx, http.MethodPost, m.c.URL(nil, "member", string(id), "journal"), in)
}

func (m *Client) UpdateAccess(ctx context.Context, id domain.MemberID, in memberapi.AccessUpdate) (json.RawMessage, error) {
	return m.c.Do(ctx, http.MethodPut, m.c.URL(nil, "member", string(id), "access"), in)
}

func (m *Client) GetReceipts(ctx context.Context, id domain.MemberID, months int) (json.RawMessage, error) {
	q := url.Values{"months": {strconv.Itoa(months)}}
	return m.c.Get(ctx, m.c.URL(q, "member", string(id), "receipts"))
}

func (m *Client) SendReceipt(ctx context.Context, id domain.MemberID, in memberapi.ReceiptRequest) (json.RawMessage, error) {
	return m.plain.Do(ctx, http.MethodPost, m.plain.URL(nil, "member", string(id), "receipt", "send"), in)
}

func (m *Client) Refresh(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return m.c.Do(ctx, http.MethodPost, m.c.URL(nil, "member", string(id), "refresh"), nil)
}

func (m *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	return m.c.Get(ctx, m.c.URL(url.Values{"q": {query}}, "search"))
}

func (m *Client) ReceiptDownloadURL(id domain.MemberID, cardID domain.CardID, fromDate, toDate string) string {
	var q url.Values
	if fromDate != "" {
		q = url.Values{"fromDate": {fromDate}, "toDate": {toDate}}
	}
	return m.c.URL(q, "member", string(id), "receipt", string(cardID), "download")
}
