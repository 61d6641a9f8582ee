package staffrepo

import (
	"context"
	"testing"
	"time"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/staffrepo"
)

func TestRepo_CreateAndGet(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	now := time.Unix(100, 0).UTC()

	s := staffrepo.Staff{
		ID:          domain.StaffID("s1"),
		Subject:     domain.StaffSubject("desk-1"),
		DisplayName: "Kim Receptionen",
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.Create(context.Background(), s); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	gotByID, err := r.GetByID(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if gotByID.Subject != s.Subject || gotByID.DisplayName != s.DisplayName {
		t.Fatalf("GetByID()=%+v, want %+v", gotByID, s)
	}

	gotBySub, err := r.GetBySubject(context.Background(), s.Subject)
	if err != nil {
		t.Fatalf("GetBySubject() err=%v", err)
	}
	if gotBySub.ID != s.ID {
		t.Fatalf("GetBySubject().ID=%q, want %q", gotBySub.ID, s.ID)
	}

	if _, err := r.GetBySubject(context.Background(), "unknown"); err != staffrepo.ErrNotFound {
		t.Fatalf("GetBySubject(unknown) err=%v, want %v", err, staffrepo.ErrNotFound)
	}
}

func TestRepo_CreateRejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	if err := r.Create(context.Background(), staffrepo.Staff{ID: "s1", Subject: "desk-1", DisplayName: "A"}); err != nil {
		t.Fatalf("Create(s1) err=%v", err)
	}
	if err := r.Create(context.Background(), staffrepo.Staff{ID: "s1", Subject: "desk-2", DisplayName: "B"}); err != staffrepo.ErrAlreadyExists {
		t.Fatalf("Create(dup id) err=%v, want %v", err, staffrepo.ErrAlreadyExists)
	}
	if err := r.Create(context.Background(), staffrepo.Staff{ID: "s2", Subject: "desk-1", DisplayName: "B"}); err != staffrepo.ErrSubjectAlreadyBound {
		t.Fatalf("Create(dup subject) err=%v, want %v", err, staffrepo.ErrSubjectAlreadyBound)
	}
}

func TestRepo_UpdateRequiresExistingAndImmutableSubject(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	s := staffrepo.Staff{ID: "s1", Subject: "desk-1", DisplayName: "Kim", Active: true}
	if err := r.Update(context.Background(), s); err != staffrepo.ErrNotFound {
		t.Fatalf("Update(nonexistent) err=%v, want %v", err, staffrepo.ErrNotFound)
	}
	if err := r.Create(context.Background(), s); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	moved := s
	moved.Subject = "desk-2"
	if err := r.Update(context.Background(), moved); err != staffrepo.ErrSubjectAlreadyBound {
		t.Fatalf("Update(changed subject) err=%v, want %v", err, staffrepo.ErrSubjectAlreadyBound)
	}
	renamed := s
	renamed.DisplayName = "Kim L"
	renamed.Active = false
	if err := r.Update(context.Background(), renamed); err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	got, _ := r.GetByID(context.Background(), "s1")
	if got.DisplayName != "Kim L" || got.Active {
		t.Fatalf("GetByID() after update=%+v", got)
	}
}

func TestRepo_ListOrdersByDisplayNameAndFiltersInactive(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	_ = r.Create(context.Background(), staffrepo.Staff{ID: "s2", Subject: "a", DisplayName: "bo", Active: true})
	_ = r.Create(context.Background(), staffrepo.Staff{ID: "s1", Subject: "b", DisplayName: "Alva", Active: true})
	_ = r.Create(context.Background(), staffrepo.Staff{ID: "s3", Subject: "c", DisplayName: "Bo", Active: false})

	got, err := r.List(context.Background(), true)
	if err != nil {
		t.Fatalf("List() err=%v", err)
	}
	if len(got) != 3 || got[0].ID != "s1" || got[1].ID != "s2" || got[2].ID != "s3" {
		t.Fatalf("List() order=%v", got)
	}

	got, _ = r.List(context.Background(), false)
	if len(got) != 2 {
		t.Fatalf("List(includeInactive=false) len=%d, want 2", len(got))
	}
}
