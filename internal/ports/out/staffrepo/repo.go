package staffrepo

import (
	"context"
	"time"

	"github.com/coregym/member-card-api/internal/domain"
)

// Staff is a front-desk user who can write journal notes and change access.
// DisplayName is what members see as the author of a note.
type Staff struct {
	ID          domain.StaffID
	Subject     domain.StaffSubject
	DisplayName string
	Active      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to the staff directory.
//
// List returns staff ordered by DisplayName ascending (case-insensitive), ties broken by ID.
type Repository interface {
	Create(ctx context.Context, s Staff) error
	Update(ctx context.Context, s Staff) error

	GetByID(ctx context.Context, id domain.StaffID) (Staff, error)
	GetBySubject(ctx context.Context, subject domain.StaffSubject) (Staff, error)

	List(ctx context.Context, includeInactive bool) ([]Staff, error)
}
