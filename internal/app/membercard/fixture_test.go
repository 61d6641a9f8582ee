package membercard

import (
	"context"
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	memclock "github.com/coregym/member-card-api/internal/adapters/memory/clock"
	memmemberapi "github.com/coregym/member-card-api/internal/adapters/memory/memberapi"
	mempushapi "github.com/coregym/member-card-api/internal/adapters/memory/pushapi"
	memstaffrepo "github.com/coregym/member-card-api/internal/adapters/memory/staffrepo"
	memstatsapi "github.com/coregym/member-card-api/internal/adapters/memory/statsapi"
	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/platform/jsonx"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
	"github.com/coregym/member-card-api/internal/ports/out/staffrepo"
)

const testMember = domain.MemberID("m-1")

// 2024-06-15 12:00 in Stockholm.
var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	members *memmemberapi.Service
	stats   *memstatsapi.Service
	push    *mempushapi.Service
	staff   *memstaffrepo.Repo
	clk     *memclock.ManualClock
	spans   *tracetest.SpanRecorder
	svc     *Service
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)

	f := &fixture{
		stats: memstatsapi.New(),
		push:  mempushapi.New(),
		staff: memstaffrepo.NewRepo(),
		clk:   memclock.NewManualClock(testNow),
		spans: tracetest.NewSpanRecorder(),
	}
	f.members = memmemberapi.New(f.clk)

	if opts.Location == nil {
		opts.Location = loc
	}
	opts.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(f.spans))
	f.svc = NewService(Deps{
		Members: f.members,
		Stats:   f.stats,
		Push:    f.push,
		Staff:   f.staff,
		Clock:   f.clk,
	}, opts)
	return f
}

// seed registers a fully populated member.
func (f *fixture) seed(t *testing.T) {
	t.Helper()

	f.members.PutMember(testMember, memberapi.Profile{
		FirstName:          "  Anna ",
		LastName:           "Svensson  ",
		Mail:               "anna@example.com",
		Mobile:             jsonx.Text("0701234567"),
		PersonalCodeNumber: jsonx.Text("20100101-1234"),
		HomeSiteID:         jsonx.Int{Value: 2, Valid: true},
		CreatedBy:          "kiosk",
	})
	f.members.PutAccess(testMember, memberapi.Access{
		CanOpen: map[string]any{"vegastaden": true, "egym": float64(1), "tungelsta": false},
		Booking: map[string]any{"classes": true},
		TrainingCards: []memberapi.TrainingCard{
			{ID: "c-auto", CardTypeName: "Autogiro", PayMethod: "autogiro", Price: "399"},
			{ID: "c-today", CardTypeName: "Månadskort", ValidFrom: "2024-05-16", ValidUntil: "2024-06-15", Discount: &memberapi.Discount{Name: "Student", Percent: "10"}},
			{ID: "c-old", CardTypeName: "Årskort", ValidFrom: "2023-01-01", ValidUntil: "2023-12-31", Discount: &memberapi.Discount{Name: "Personal", Fixed: "100"}},
		},
	})
	_, err := f.members.AddJournalEntry(context.Background(), testMember, memberapi.JournalEntryInput{Entry: "Ringde om **frysning**", StaffName: "Kim"})
	require.NoError(t, err)

	f.stats.PutStats(testMember, `{"visits":12}`)
	f.stats.PutOnboarding(testMember, `{"done":true}`)
	f.stats.PutPrefs(testMember, `{"playSound":false,"theme":"dark"}`)
	f.stats.PutHistory(testMember, `{"history":[
		{"gym":"vegastaden","checkinTime":"2024-06-14T08:00:01Z","source":"mobile"},
		{"gym":"vegastaden","checkinTime":"2024-06-14T08:00:03Z","source":"kiosk"},
		{"gym":"tungelsta","checkinTime":"2024-06-14T08:00:03Z","source":"card"}
	]}`)
	f.push.PutSubscription(testMember, `{"subscribed":true}`)
}

func (f *fixture) addStaff(t *testing.T, subject domain.StaffSubject, name string) {
	t.Helper()
	require.NoError(t, f.staff.Create(context.Background(), staffrepo.Staff{
		ID:          domain.StaffID("s-" + string(subject)),
		Subject:     subject,
		DisplayName: name,
		Active:      true,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}))
}

func requireAppError(t *testing.T, err error, status int, code string) *Error {
	t.Helper()
	require.Error(t, err)
	var ae *Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, status, ae.Status, "message=%q", ae.Message)
	require.Equal(t, code, ae.Code)
	return ae
}

func jsonEq(t *testing.T, want string, got json.RawMessage) {
	t.Helper()
	require.JSONEq(t, want, string(got))
}
