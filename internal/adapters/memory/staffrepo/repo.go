package staffrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/staffrepo"
)

// Repo is an in-memory implementation of staffrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID    map[domain.StaffID]staffrepo.Staff
	idBySub map[domain.StaffSubject]domain.StaffID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.StaffID]staffrepo.Staff),
		idBySub: make(map[domain.StaffSubject]domain.StaffID),
	}
}

func (r *Repo) Create(ctx context.Context, s staffrepo.Staff) error {
	_ = ctx
	if s.ID == "" {
		return staffrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; ok {
		return staffrepo.ErrAlreadyExists
	}
	if _, ok := r.idBySub[s.Subject]; ok {
		return staffrepo.ErrSubjectAlreadyBound
	}

	r.byID[s.ID] = s
	r.idBySub[s.Subject] = s.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, s staffrepo.Staff) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[s.ID]
	if !ok {
		return staffrepo.ErrNotFound
	}
	// Subject binding is immutable.
	if existing.Subject != s.Subject {
		return staffrepo.ErrSubjectAlreadyBound
	}
	s.CreatedAt = existing.CreatedAt
	r.byID[s.ID] = s
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.StaffID) (staffrepo.Staff, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return staffrepo.Staff{}, staffrepo.ErrNotFound
	}
	return s, nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.StaffSubject) (staffrepo.Staff, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idBySub[subject]
	if !ok {
		return staffrepo.Staff{}, staffrepo.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *Repo) List(ctx context.Context, includeInactive bool) ([]staffrepo.Staff, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]staffrepo.Staff, 0, len(r.byID))
	for _, s := range r.byID {
		if !includeInactive && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		di := strings.ToLower(out[i].DisplayName)
		dj := strings.ToLower(out[j].DisplayName)
		if di == dj {
			return out[i].ID < out[j].ID
		}
		return di < dj
	})
	return out, nil
}
