package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coregym/member-card-api/internal/domain"
	idempotencyport "github.com/coregym/member-card-api/internal/ports/out/idempotency"
	staffrepoport "github.com/coregym/member-card-api/internal/ports/out/staffrepo"
)

type CleanupFunc = func()

type StaffRepoFactory func(t *testing.T) (staffrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.StaffSubject("desk-1"),
		MemberID: domain.MemberID("42"),
		Method:   "POST",
		Route:    "/members/{memberId}/journal",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Each fingerprint field separates records.
	for name, other := range map[string]idempotencyport.Fingerprint{
		"subject": withFP(fp, func(f *idempotencyport.Fingerprint) { f.Subject = "desk-2" }),
		"member":  withFP(fp, func(f *idempotencyport.Fingerprint) { f.MemberID = "43" }),
		"route":   withFP(fp, func(f *idempotencyport.Fingerprint) { f.Route = "/members/{memberId}/push" }),
		"body":    withFP(fp, func(f *idempotencyport.Fingerprint) { f.BodyHash = "other" }),
	} {
		if _, ok, err := store.Get(ctx, other); err != nil || ok {
			t.Fatalf("Get with different %s: ok=%v err=%v", name, ok, err)
		}
	}
}

func withFP(fp idempotencyport.Fingerprint, mut func(*idempotencyport.Fingerprint)) idempotencyport.Fingerprint {
	mut(&fp)
	return fp
}

func RunStaffRepo(t *testing.T, newRepo StaffRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.StaffID(uuid.NewString())
	sub := domain.StaffSubject("desk-" + uuid.NewString())
	if err := repo.Create(ctx, staffrepoport.Staff{
		ID:          aID,
		Subject:     sub,
		DisplayName: "Alva Lind",
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	got, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DisplayName != "Alva Lind" || got.Subject != sub || !got.Active {
		t.Fatalf("GetByID: unexpected %+v", got)
	}
	if _, err := repo.GetBySubject(ctx, sub); err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}
	if _, err := repo.GetBySubject(ctx, domain.StaffSubject("missing-"+uuid.NewString())); !errors.Is(err, staffrepoport.ErrNotFound) {
		t.Fatalf("GetBySubject(missing): err=%v, want ErrNotFound", err)
	}

	// Subject uniqueness.
	if err := repo.Create(ctx, staffrepoport.Staff{
		ID:          domain.StaffID(uuid.NewString()),
		Subject:     sub,
		DisplayName: "Alva 2",
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); !errors.Is(err, staffrepoport.ErrSubjectAlreadyBound) {
		t.Fatalf("expected ErrSubjectAlreadyBound, got %v", err)
	}

	// Update keeps the subject binding.
	upd := got
	upd.DisplayName = "Alva L"
	upd.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	moved := upd
	moved.Subject = domain.StaffSubject("desk-" + uuid.NewString())
	if err := repo.Update(ctx, moved); !errors.Is(err, staffrepoport.ErrSubjectAlreadyBound) {
		t.Fatalf("Update(moved subject): err=%v, want ErrSubjectAlreadyBound", err)
	}

	// Inactive staff only appear when asked for.
	bID := domain.StaffID(uuid.NewString())
	if err := repo.Create(ctx, staffrepoport.Staff{
		ID:          bID,
		Subject:     domain.StaffSubject("desk-" + uuid.NewString()),
		DisplayName: "Bo Inaktiv",
		Active:      false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	active, err := repo.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, s := range active {
		if s.ID == bID {
			t.Fatalf("List(includeInactive=false) returned inactive staff")
		}
	}
	all, err := repo.List(ctx, true)
	if err != nil {
		t.Fatalf("List(all): %v", err)
	}
	if !containsStaff(all, aID) || !containsStaff(all, bID) {
		t.Fatalf("List(includeInactive=true) missing entries: %#v", all)
	}
}

func containsStaff(list []staffrepoport.Staff, id domain.StaffID) bool {
	for _, s := range list {
		if s.ID == id {
			return true
		}
	}
	return false
}
