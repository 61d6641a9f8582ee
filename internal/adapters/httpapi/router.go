package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/coregym/member-card-api/internal/platform/logger"
)

type RouterOptions struct {
	// StaffMiddleware resolves the acting staff user. Defaults to NewStaffMiddleware("", "") (no cookie forwarding).
	StaffMiddleware func(http.Handler) http.Handler
	// CSRFKey enables CSRF protection on state-changing routes when set (32 bytes).
	CSRFKey []byte
	// CSRFSecure marks the CSRF cookie Secure and enforces same-origin Referer checks.
	CSRFSecure bool
	// TrustedOrigins are extra origins allowed to post with a CSRF token.
	TrustedOrigins []string
	Log            *logger.Logger
}

// NewRouter constructs the API HTTP router.
func NewRouter(api *Server, opts RouterOptions) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	staff := opts.StaffMiddleware
	if staff == nil {
		staff = NewStaffMiddleware("", "")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	// Out of the API surface; used for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if len(opts.CSRFKey) > 0 {
			r.Use(csrfMiddleware(opts))
			r.Get("/csrf-token", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Cache-Control", "no-store")
				writeJSON(w, http.StatusOK, csrfTokenResponse{CSRFToken: csrf.Token(r)})
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(staff)

			r.Get("/members/search", api.SearchMembers)
			r.Route("/members/{memberId}", func(r chi.Router) {
				r.Get("/card", api.GetMemberCard)
				r.Post("/card/refresh", api.RefreshMember)
				r.Post("/journal", api.AddJournalEntry)
				r.Put("/access", api.UpdateAccess)
				r.Post("/prefs/{key}/toggle", api.TogglePreference)
				r.Get("/receipts", api.ListReceipts)
				r.Post("/receipts/{cardId}/send", api.SendReceipt)
				r.Get("/receipts/{cardId}/download-url", api.ReceiptDownloadURL)
				r.Post("/push", api.SendPush)
				r.Post("/door/open", api.OpenDoor)
			})
		})
	})
	return r
}

func csrfMiddleware(opts RouterOptions) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		opts.CSRFKey,
		csrf.Secure(opts.CSRFSecure),
		csrf.Path("/"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.TrustedOrigins(opts.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusForbidden, "CSRF_FAILED", csrf.FailureReason(r).Error(), nil)
		})),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if opts.CSRFSecure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// requestLogger logs one line per request once the response is written.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			}
			switch {
			case status >= 500:
				log.Error("http request", kv...)
			case status >= 400:
				log.Warn("http request", kv...)
			default:
				log.Info("http request", kv...)
			}
		})
	}
}
