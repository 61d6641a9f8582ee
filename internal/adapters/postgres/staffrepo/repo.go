package staffrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/coregym/member-card-api/internal/adapters/postgres"
	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/staffrepo"
)

// Repo is a Postgres implementation of staffrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

var _ staffrepo.Repository = (*Repo)(nil)

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectStaff = `
	SELECT id, subject, display_name, is_active, created_at, updated_at
	FROM staff_users
`

func (r *Repo) Create(ctx context.Context, s staffrepo.Staff) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(s.ID))
	if err != nil {
		return fmt.Errorf("invalid staff id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO staff_users (id, subject, display_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		id,
		string(s.Subject),
		s.DisplayName,
		s.Active,
		s.CreatedAt.UTC(),
		s.UpdatedAt.UTC(),
	)
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
		switch pe.ConstraintName {
		case "staff_users_subject_unique":
			return staffrepo.ErrSubjectAlreadyBound
		case "staff_users_pkey":
			return staffrepo.ErrAlreadyExists
		}
	}
	return err
}

func (r *Repo) Update(ctx context.Context, s staffrepo.Staff) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(s.ID))
	if err != nil {
		return staffrepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := scanStaff(tx.QueryRow(ctx, selectStaff+` WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if existing.Subject != s.Subject {
			return staffrepo.ErrSubjectAlreadyBound
		}
		_, err = tx.Exec(ctx, `
			UPDATE staff_users
			SET display_name = $2,
			    is_active = $3,
			    updated_at = $4
			WHERE id = $1
		`,
			id,
			s.DisplayName,
			s.Active,
			s.UpdatedAt.UTC(),
		)
		return err
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.StaffID) (staffrepo.Staff, error) {
	if r.pool == nil {
		return staffrepo.Staff{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return staffrepo.Staff{}, staffrepo.ErrNotFound
	}
	return scanStaff(r.pool.QueryRow(ctx, selectStaff+` WHERE id = $1`, uid))
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.StaffSubject) (staffrepo.Staff, error) {
	if r.pool == nil {
		return staffrepo.Staff{}, errors.New("nil postgres pool")
	}
	return scanStaff(r.pool.QueryRow(ctx, selectStaff+` WHERE subject = $1`, string(subject)))
}

func (r *Repo) List(ctx context.Context, includeInactive bool) ([]staffrepo.Staff, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	where := ""
	if !includeInactive {
		where = ` WHERE is_active = true`
	}
	rows, err := r.pool.Query(ctx, selectStaff+where+` ORDER BY lower(display_name) ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]staffrepo.Staff, 0)
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanStaff(row pgx.Row) (staffrepo.Staff, error) {
	var (
		id          uuid.UUID
		subject     string
		displayName string
		active      bool
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(&id, &subject, &displayName, &active, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return staffrepo.Staff{}, staffrepo.ErrNotFound
		}
		return staffrepo.Staff{}, err
	}
	return staffrepo.Staff{
		ID:          domain.StaffID(id.String()),
		Subject:     domain.StaffSubject(subject),
		DisplayName: displayName,
		Active:      active,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   updatedAt.UTC(),
	}, nil
}
