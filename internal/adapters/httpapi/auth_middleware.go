package httpapi

import (
	"net/http"
	"strings"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/platform/session"
)

// StaffSubjectHeader carries the acting staff user's subject. The fronting session layer sets
// it after authenticating the staff browser; this service trusts it as given.
const StaffSubjectHeader = "X-Staff-Subject"

// NewStaffMiddleware stores the acting staff subject and the member-service session cookie in
// request context. Only the cookie named sessionCookie is kept; it is forwarded on
// credentialed member-service calls. Other cookies for this origin never leave the service.
//
// When the header is absent, defaultSubject is used; with neither, the request is rejected.
func NewStaffMiddleware(defaultSubject, sessionCookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get(StaffSubjectHeader))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing staff subject (set "+StaffSubjectHeader+")", nil)
				return
			}

			ctx := WithStaffSubject(r.Context(), domain.StaffSubject(sub))
			if sessionCookie != "" {
				if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
					ctx = session.WithCookie(ctx, (&http.Cookie{Name: c.Name, Value: c.Value}).String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
