// Package pushapi is the outbound port to the push-notification service.
package pushapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coregym/member-card-api/internal/domain"
)

type Notification struct {
	MemberID domain.MemberID
	Title    string
	Body     string
	// SendAt is only used by Schedule.
	SendAt time.Time
}

// Delivery is the push service's verdict on one send or schedule request.
// Accepted is read from the response's "sent" field, or "success" when that is absent.
type Delivery struct {
	Accepted bool
	Raw      json.RawMessage
}

// Client talks to the push service. Delivery guarantees belong to the push service.
type Client interface {
	GetSubscription(ctx context.Context, id domain.MemberID) (json.RawMessage, error)
	Send(ctx context.Context, n Notification) (Delivery, error)
	Schedule(ctx context.Context, n Notification) (Delivery, error)
}
