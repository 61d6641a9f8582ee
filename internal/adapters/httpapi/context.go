package httpapi

import (
	"context"

	"github.com/coregym/member-card-api/internal/domain"
)

type staffSubjectKey struct{}

func WithStaffSubject(ctx context.Context, subject domain.StaffSubject) context.Context {
	return context.WithValue(ctx, staffSubjectKey{}, subject)
}

func StaffSubjectFromContext(ctx context.Context) (domain.StaffSubject, bool) {
	v, ok := ctx.Value(staffSubjectKey{}).(domain.StaffSubject)
	return v, ok && v != ""
}
