package idempotency

import (
	"context"
	"time"

	"github.com/coregym/member-card-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes.
//
// Strategy: key + route + staff subject + request body hash.
// Route is HTTP method + route pattern plus the member id, e.g. "POST /members/{memberId}/push" with
// MemberID set, so the same key reused for a different member is a different fingerprint.
type Fingerprint struct {
	Key      Key
	Subject  domain.StaffSubject
	MemberID domain.MemberID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying write responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
