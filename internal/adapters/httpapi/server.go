package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/coregym/member-card-api/internal/app/membercard"
	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/platform/logger"
	"github.com/coregym/member-card-api/internal/ports/out/clock"
	"github.com/coregym/member-card-api/internal/ports/out/idempotency"
)

// maxBodyBytes caps request bodies; journal notes are the largest legitimate payload.
const maxBodyBytes = 64 << 10

// Server is the HTTP adapter over the member card service.
type Server struct {
	cards *membercard.Service
	idem  idempotency.Store
	clk   clock.Clock
	log   *logger.Logger
}

// NewServer wires the handlers. idem may be nil, which turns Idempotency-Key handling off.
func NewServer(cards *membercard.Service, idem idempotency.Store, clk clock.Clock, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{cards: cards, idem: idem, clk: clk, log: log}
}

func memberIDParam(r *http.Request) domain.MemberID {
	return domain.MemberID(chi.URLParam(r, "memberId"))
}

func (s *Server) GetMemberCard(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cards.GetMemberCard(r.Context(), memberIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) RefreshMember(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cards.RefreshMember(r.Context(), memberIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) SearchMembers(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &q); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, membercard.CodeValidation, "invalid q", map[string]any{"q": err.Error()})
		return
	}
	hits, err := s.cards.SearchMembers(r.Context(), q)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchMembersResponse{Members: hits})
}

func (s *Server) AddJournalEntry(w http.ResponseWriter, r *http.Request) {
	var body JournalEntryRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	id := memberIDParam(r)
	s.writeOnce(w, r, "/members/{memberId}/journal", id, body, func() (int, any, error) {
		sub, _ := StaffSubjectFromContext(r.Context())
		rec, err := s.cards.AddJournalEntry(r.Context(), id, sub, body.Entry)
		return http.StatusCreated, rec, err
	})
}

func (s *Server) UpdateAccess(w http.ResponseWriter, r *http.Request) {
	var body UpdateAccessRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	sub, _ := StaffSubjectFromContext(r.Context())
	out, err := s.cards.UpdateAccess(r.Context(), memberIDParam(r), sub, membercard.AccessUpdateInput{
		Door:   body.Door,
		Reason: body.Reason,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UpstreamResultResponse{Result: rawOrEmpty(out)})
}

func (s *Server) TogglePreference(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.cards.TogglePreference(r.Context(), memberIDParam(r), chi.URLParam(r, "key"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreferencesResponse{Prefs: prefs})
}

func (s *Server) ListReceipts(w http.ResponseWriter, r *http.Request) {
	var months *int
	if err := runtime.BindQueryParameter("form", true, false, "months", r.URL.Query(), &months); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, membercard.CodeValidation, "invalid months", map[string]any{"months": "must be an integer"})
		return
	}
	n := 0
	if months != nil {
		n = *months
		if n == 0 {
			writeError(w, r, http.StatusUnprocessableEntity, membercard.CodeValidation, "invalid months", map[string]any{"months": "must be between 1 and 120"})
			return
		}
	}
	out, err := s.cards.ListReceipts(r.Context(), memberIDParam(r), n)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReceiptsResponse{Receipts: out})
}

func (s *Server) SendReceipt(w http.ResponseWriter, r *http.Request) {
	var body SendReceiptRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	id := memberIDParam(r)
	cardID := domain.CardID(chi.URLParam(r, "cardId"))
	fingerprinted := struct {
		CardID domain.CardID      `json:"cardId"`
		Body   SendReceiptRequest `json:"body"`
	}{cardID, body}

	s.writeOnce(w, r, "/members/{memberId}/receipts/{cardId}/send", id, fingerprinted, func() (int, any, error) {
		out, err := s.cards.SendReceipt(r.Context(), id, body.input(cardID))
		return http.StatusOK, UpstreamResultResponse{Result: rawOrEmpty(out)}, err
	})
}

func (s *Server) ReceiptDownloadURL(w http.ResponseWriter, r *http.Request) {
	var from, to *openapi_types.Date
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "fromDate", q, &from); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, membercard.CodeValidation, "invalid fromDate", map[string]any{"fromDate": "must be a date (YYYY-MM-DD)"})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "toDate", q, &to); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, membercard.CodeValidation, "invalid toDate", map[string]any{"toDate": "must be a date (YYYY-MM-DD)"})
		return
	}

	u, err := s.cards.ReceiptDownloadURL(memberIDParam(r), domain.CardID(chi.URLParam(r, "cardId")), dateString(from), dateString(to))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DownloadURLResponse{URL: u})
}

func (s *Server) SendPush(w http.ResponseWriter, r *http.Request) {
	var body PushRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	id := memberIDParam(r)
	s.writeOnce(w, r, "/members/{memberId}/push", id, body, func() (int, any, error) {
		out, err := s.cards.SendPush(r.Context(), id, body.input())
		return http.StatusOK, pushResponse(out), err
	})
}

func (s *Server) OpenDoor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Gym string `json:"gym"`
	}
	if r.ContentLength != 0 && !s.decodeBody(w, r, &body) {
		return
	}
	s.writeAppError(w, r, s.cards.OpenDoor(r.Context(), memberIDParam(r), body.Gym))
}

// decodeBody reads a JSON request body into v. It writes the error response itself and
// reports whether the handler should continue.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, r, http.StatusRequestEntityTooLarge, membercard.CodeValidation, "request body too large", nil)
		case errors.Is(err, io.EOF):
			writeError(w, r, http.StatusUnprocessableEntity, membercard.CodeValidation, "missing request body", nil)
		default:
			writeError(w, r, http.StatusUnprocessableEntity, membercard.CodeValidation, "invalid request body", map[string]any{"body": err.Error()})
		}
		return false
	}
	return true
}

func dateString(d *openapi_types.Date) string {
	if d == nil {
		return ""
	}
	return d.Format(openapi_types.DateFormat)
}
