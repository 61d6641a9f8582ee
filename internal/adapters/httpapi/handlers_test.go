package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/coregym/member-card-api/internal/adapters/memory/clock"
	memidempotency "github.com/coregym/member-card-api/internal/adapters/memory/idempotency"
	memmemberapi "github.com/coregym/member-card-api/internal/adapters/memory/memberapi"
	mempushapi "github.com/coregym/member-card-api/internal/adapters/memory/pushapi"
	memstaffrepo "github.com/coregym/member-card-api/internal/adapters/memory/staffrepo"
	memstatsapi "github.com/coregym/member-card-api/internal/adapters/memory/statsapi"
	"github.com/coregym/member-card-api/internal/app/membercard"
	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/platform/jsonx"
	"github.com/coregym/member-card-api/internal/platform/session"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
	"github.com/coregym/member-card-api/internal/ports/out/staffrepo"
)

var handlerNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type apiFixture struct {
	members *memmemberapi.Service
	stats   *memstatsapi.Service
	push    *mempushapi.Service
	h       http.Handler
}

func newAPIFixture(t *testing.T, opts RouterOptions) *apiFixture {
	t.Helper()

	clk := memclock.NewManualClock(handlerNow)
	f := &apiFixture{
		members: memmemberapi.New(clk),
		stats:   memstatsapi.New(),
		push:    mempushapi.New(),
	}
	staff := memstaffrepo.NewRepo()
	require.NoError(t, staff.Create(context.Background(), staffrepo.Staff{
		ID:          "s-1",
		Subject:     "desk-1",
		DisplayName: "Kim Berg",
		Active:      true,
		CreatedAt:   handlerNow,
		UpdatedAt:   handlerNow,
	}))

	f.members.PutMember("42", memberapi.Profile{Name: "Anna Svensson", PersonalCodeNumber: jsonx.Text("19900101-1234")})
	f.members.PutAccess("42", memberapi.Access{
		CanOpen:       map[string]any{"tungelsta": true},
		TrainingCards: []memberapi.TrainingCard{{ID: "c-1", CardTypeName: "Månadskort", ValidUntil: "2024-12-31"}},
	})
	f.stats.PutPrefs("42", `{"playSound":true}`)

	svc := membercard.NewService(membercard.Deps{
		Members: f.members,
		Stats:   f.stats,
		Push:    f.push,
		Staff:   staff,
		Clock:   clk,
	}, membercard.Options{Location: time.UTC})
	f.h = NewRouter(NewServer(svc, memidempotency.NewStore(), clk, nil), opts)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(StaffSubjectHeader, "desk-1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &er), rr.Body.String())
	return er.Error
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestGetMemberCard(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodGet, "/members/42/card", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rec domain.MemberRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, domain.MemberID("42"), rec.Member.ID)
	assert.Equal(t, "Anna Svensson", rec.Member.Name)
	require.NotNil(t, rec.Age.Years)
	assert.Equal(t, 34, *rec.Age.Years)
	require.Len(t, rec.Memberships.Active, 1)
	assert.Equal(t, []string{"Tungelsta + VH"}, rec.Access.Summary)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.Nil(t, raw["stats"])
	assert.Contains(t, raw, "stats")
}

func TestGetMemberCard_NotFound(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodGet, "/members/999/card", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	er := decodeError(t, rr)
	assert.Equal(t, membercard.CodeMemberNotFound, er.Code)
	assert.Equal(t, "Medlemmen hittades inte", er.Message)
	assert.True(t, er.RequestID.IsSpecified())
}

func TestGetMemberCard_UpstreamDown(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	f.members.FailOn(memmemberapi.OpGetProfile, errors.New("connection refused"))

	rr := f.do(t, http.MethodGet, "/members/42/card", "", nil)
	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, membercard.CodeMemberUnavailable, decodeError(t, rr).Code)
}

func TestStaffSubjectRequired(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	req := httptest.NewRequest(http.MethodGet, "/members/42/card", nil)
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rr).Code)
}

func TestStaffMiddleware_CapturesSessionCookie(t *testing.T) {
	t.Parallel()

	var gotCookie string
	var gotSub domain.StaffSubject
	h := NewStaffMiddleware("", "sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie, _ = session.CookieFromContext(r.Context())
		gotSub, _ = StaffSubjectFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/members/42/card", nil)
	req.Header.Set(StaffSubjectHeader, " desk-9 ")
	req.Header.Set("Cookie", "_gorilla_csrf=tok; sid=abc; theme=dark")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "sid=abc", gotCookie)
	assert.Equal(t, domain.StaffSubject("desk-9"), gotSub)
}

func TestStaffMiddleware_NoSessionCookie(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		name   string
		header string
	}{
		"only csrf cookie":    {name: "sid", header: "_gorilla_csrf=tok"},
		"forwarding disabled": {name: "", header: "sid=abc; _gorilla_csrf=tok"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			found := true
			h := NewStaffMiddleware("desk-1", tt.name)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, found = session.CookieFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/members/42/card", nil)
			req.Header.Set("Cookie", tt.header)
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.False(t, found)
		})
	}
}

func TestAddJournalEntry(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodPost, "/members/42/journal", `{"entry":"Frös kortet"}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var rec domain.MemberRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	require.Len(t, rec.Journal, 1)
	assert.Equal(t, "Kim Berg", rec.Journal[0].StaffName)

	rr = f.do(t, http.MethodPost, "/members/42/journal", `{"entry":"  "}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = f.do(t, http.MethodPost, "/members/42/journal", `{"entry":`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid request body", decodeError(t, rr).Message)
}

func TestAddJournalEntry_IdempotentReplay(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	hdr := map[string]string{IdempotencyKeyHeader: "k-1"}

	first := f.do(t, http.MethodPost, "/members/42/journal", `{"entry":"note"}`, hdr)
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.do(t, http.MethodPost, "/members/42/journal", `{ "entry": "note" }`, hdr)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(replayedHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	card := f.do(t, http.MethodGet, "/members/42/card", "", nil)
	var rec domain.MemberRecord
	require.NoError(t, json.Unmarshal(card.Body.Bytes(), &rec))
	assert.Len(t, rec.Journal, 1)

	conflict := f.do(t, http.MethodPost, "/members/42/journal", `{"entry":"other"}`, hdr)
	require.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSE", decodeError(t, conflict).Code)

	// Another staff user has its own key space.
	other := f.do(t, http.MethodPost, "/members/42/journal", `{"entry":"other"}`, map[string]string{IdempotencyKeyHeader: "k-1", StaffSubjectHeader: "desk-2"})
	require.Equal(t, http.StatusCreated, other.Code)
}

func TestUpdateAccess(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodPut, "/members/42/access", `{"door":{"tungelsta":false},"reason":"spärrad"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"result":{"ok":true,"door":{"tungelsta":false}}}`, rr.Body.String())

	changes := f.members.AccessChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, "Kim Berg", changes[0].Update.UpdatedBy)
}

func TestTogglePreference(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodPost, "/members/42/prefs/playSound/toggle", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"prefs":{"playSound":false}}`, rr.Body.String())

	rr = f.do(t, http.MethodPost, "/members/42/prefs/volume/toggle", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestSearchMembers(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodGet, "/members/search?q=anna", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"members":[{"id":"42","name":"Anna Svensson"}]}`, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/members/search", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = f.do(t, http.MethodGet, "/members/search?q=a", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestListReceipts(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodGet, "/members/42/receipts?months=6", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"receipts":{"receipts":[]}}`, rr.Body.String())
	assert.Equal(t, []int{6}, f.members.ReceiptMonths())

	for _, q := range []string{"months=abc", "months=0", "months=500"} {
		rr = f.do(t, http.MethodGet, "/members/42/receipts?"+q, "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, q)
	}

	f.members.FailOn(memmemberapi.OpGetReceipts, errors.New("down"))
	rr = f.do(t, http.MethodGet, "/members/42/receipts", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"receipts":null}`, rr.Body.String())
}

func TestSendReceipt(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodPost, "/members/42/receipts/c-1/send", `{"fromDate":"2024-01-01","email":null}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"result":{"sent":true}}`, rr.Body.String())

	sent := f.members.SentReceipts()
	require.Len(t, sent, 1)
	assert.Equal(t, memberapi.ReceiptRequest{TrainingCardID: "c-1", FromDate: "2024-01-01", ToDate: "2024-06-15"}, sent[0].Request)

	rr = f.do(t, http.MethodPost, "/members/42/receipts/c-1/send", `{"fromDate":"2024-13-01"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = f.do(t, http.MethodPost, "/members/42/receipts/c-1/send", `{"email":"nope"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, map[string]any{"email": "must be a valid email address"}, mustDetails(t, rr))
}

func TestSendReceipt_ReplayDoesNotResend(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	hdr := map[string]string{IdempotencyKeyHeader: "rcpt-1"}
	for i := 0; i < 2; i++ {
		rr := f.do(t, http.MethodPost, "/members/42/receipts/c-1/send", `{}`, hdr)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	assert.Len(t, f.members.SentReceipts(), 1)
}

func TestReceiptDownloadURL(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodGet, "/members/42/receipts/c-1/download-url?fromDate=2024-01-01", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"url":"memory://member-api/member/42/receipt/c-1/download?fromDate=2024-01-01&toDate=2024-06-15"}`, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/members/42/receipts/c-1/download-url?fromDate=jan", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestSendPush(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodPost, "/members/42/push", `{"title":"Hej","body":"Välkommen"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"scheduled":false,"sent":true,"fellBack":false}`, rr.Body.String())

	f.push.FailOn(mempushapi.OpSchedule, errors.New("queue full"))
	rr = f.do(t, http.MethodPost, "/members/42/push", `{"title":"Hej","body":"b","sendAt":"2024-06-15T12:00:00Z","fallbackToImmediate":true}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"scheduled":false,"sent":true,"fellBack":true,"scheduleError":"queue full"}`, rr.Body.String())

	rr = f.do(t, http.MethodPost, "/members/42/push", `{"title":"Hej","body":"b","sendAt":"2024-06-15T12:00:00Z"}`, nil)
	require.Equal(t, http.StatusBadGateway, rr.Code)
	er := decodeError(t, rr)
	assert.Equal(t, membercard.CodePushScheduleFailed, er.Code)
	assert.Equal(t, map[string]any{"scheduleError": "queue full"}, mustDetails(t, rr))

	rr = f.do(t, http.MethodPost, "/members/42/push", `{"title":"Hej","body":"b","sendAt":null}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, f.push.Sent(), 3)
}

func TestOpenDoor(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{})
	rr := f.do(t, http.MethodPost, "/members/42/door/open", `{"gym":"tungelsta"}`, nil)
	require.Equal(t, http.StatusNotImplemented, rr.Code)
	assert.Equal(t, membercard.CodeNotImplemented, decodeError(t, rr).Code)
}

func TestCSRF(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, RouterOptions{CSRFKey: bytes.Repeat([]byte("k"), 32)})

	rr := f.do(t, http.MethodPost, "/members/42/journal", `{"entry":"note"}`, nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "CSRF_FAILED", decodeError(t, rr).Code)

	tok := f.do(t, http.MethodGet, "/csrf-token", "", nil)
	require.Equal(t, http.StatusOK, tok.Code)
	var body csrfTokenResponse
	require.NoError(t, json.Unmarshal(tok.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)

	var cookies []string
	for _, c := range tok.Result().Cookies() {
		cookies = append(cookies, c.Name+"="+c.Value)
	}
	rr = f.do(t, http.MethodPost, "/members/42/journal", `{"entry":"note"}`, map[string]string{
		"X-CSRF-Token": body.CSRFToken,
		"Cookie":       strings.Join(cookies, "; "),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// Reads stay open.
	rr = f.do(t, http.MethodGet, "/members/42/card", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func mustDetails(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	er := decodeError(t, rr)
	require.True(t, er.Details.IsSpecified())
	d, err := er.Details.Get()
	require.NoError(t, err)
	return d
}
