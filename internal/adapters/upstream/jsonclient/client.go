// Package jsonclient is the shared HTTP/JSON transport for the backend service clients.
package jsonclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/coregym/member-card-api/internal/platform/session"
	"github.com/coregym/member-card-api/internal/ports/out/upstream"
)

// maxBodyBytes caps how much of a backend response we read.
const maxBodyBytes = 4 << 20

type Options struct {
	// Service names the backend in errors and logs.
	Service string
	BaseURL string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Credentialed forwards the caller's session cookie.
	Credentialed bool
}

type Client struct {
	service      string
	base         *url.URL
	http         *http.Client
	credentialed bool
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("%s: base URL is required", opts.Service)
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base URL: %w", opts.Service, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%s: base URL must be http or https", opts.Service)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{service: opts.Service, base: base, http: hc, credentialed: opts.Credentialed}, nil
}

// URL resolves segments against the base URL, escaping each one.
func (c *Client) URL(query url.Values, segments ...string) string {
	var sb strings.Builder
	sb.WriteString(c.base.String())
	for _, seg := range segments {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(seg))
	}
	if len(query) > 0 {
		sb.WriteByte('?')
		sb.WriteString(query.Encode())
	}
	return sb.String()
}

// Do sends a JSON request and returns the raw JSON response body. An empty body comes back as
// nil. Non-2xx responses return *upstream.StatusError.
func (c *Client) Do(ctx context.Context, method, target string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", c.service, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credentialed {
		if cookie, ok := session.CookieFromContext(ctx); ok {
			req.Header.Set("Cookie", cookie)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %s %s: %w", c.service, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", c.service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &upstream.StatusError{
			Service: c.service,
			Status:  resp.StatusCode,
			Message: errorMessage(raw),
		}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s: response is not valid JSON", c.service)
	}
	return json.RawMessage(raw), nil
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, target string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, target, nil)
}

// DecodeInto decodes raw into v. A nil or JSON null body leaves v untouched.
func DecodeInto(service string, raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: decode response: %w", service, err)
	}
	return nil
}

// errorMessage pulls a human-readable message out of an error body: {"error":"..."},
// {"error":{"message":"..."}} or {"message":"..."}.
func errorMessage(raw []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if len(body.Error) > 0 {
		var s string
		if err := json.Unmarshal(body.Error, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
			return strings.TrimSpace(nested.Message)
		}
	}
	return strings.TrimSpace(body.Message)
}
