package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/idempotency"
)

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		Subject:  domain.StaffSubject("staff-1"),
		MemberID: "42",
		Method:   "POST",
		Route:    "/members/{memberId}/journal",
		BodyHash: "abc123",
	}
	rec := idempotency.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"ok":true}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if err := s.Put(context.Background(), fp, rec); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	rec.Body[0] = 'X'

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if got.StatusCode != 200 || got.ContentType != "application/json" || string(got.Body) != `{"ok":true}` {
		t.Fatalf("Get()=%+v, want stored copy unaffected by caller mutation", got)
	}
}

func TestStore_MemberIsPartOfFingerprint(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{Key: "k1", Subject: "staff-1", MemberID: "42", Method: "POST", Route: "/members/{memberId}/push"}
	if err := s.Put(context.Background(), fp, idempotency.Record{StatusCode: 200}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	other := fp
	other.MemberID = "43"
	if _, ok, _ := s.Get(context.Background(), other); ok {
		t.Fatalf("Get(other member) ok=true, want false")
	}
}
