package membercard

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/platform/logger"
	clockport "github.com/coregym/member-card-api/internal/ports/out/clock"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
	"github.com/coregym/member-card-api/internal/ports/out/pushapi"
	"github.com/coregym/member-card-api/internal/ports/out/staffrepo"
	"github.com/coregym/member-card-api/internal/ports/out/statsapi"
)

const tracerName = "github.com/coregym/member-card-api/internal/app/membercard"

// UnknownStaff is the author shown when the acting staff user cannot be resolved.
const UnknownStaff = "Okänd"

type Deps struct {
	Members memberapi.Client
	Stats   statsapi.Client
	Push    pushapi.Client
	Staff   staffrepo.Repository
	Clock   clockport.Clock
	Log     *logger.Logger
}

type Options struct {
	// Location is the gym's time zone; "today" is evaluated there. Defaults to UTC.
	Location *time.Location
	// PushRatePerMinute caps push sends per process. Zero disables the limit.
	PushRatePerMinute int
	// ReceiptRatePerMinute caps receipt emails per process. Zero disables the limit.
	ReceiptRatePerMinute int
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Service builds member cards and runs the staff write actions. It holds no per-member state;
// every card is assembled fresh from the backends.
type Service struct {
	members memberapi.Client
	stats   statsapi.Client
	push    pushapi.Client
	staff   staffrepo.Repository
	clk     clockport.Clock
	log     *logger.Logger
	loc     *time.Location
	tracer  trace.Tracer

	pushLimiter    *rate.Limiter
	receiptLimiter *rate.Limiter
}

func NewService(deps Deps, opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		members:        deps.Members,
		stats:          deps.Stats,
		push:           deps.Push,
		staff:          deps.Staff,
		clk:            deps.Clock,
		log:            log,
		loc:            loc,
		tracer:         tp.Tracer(tracerName),
		pushLimiter:    perMinute(opts.PushRatePerMinute),
		receiptLimiter: perMinute(opts.ReceiptRatePerMinute),
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

func (s *Service) now() time.Time {
	return s.clk.Now().In(s.loc)
}

func (s *Service) today() string {
	return domain.Today(s.clk.Now(), s.loc)
}

func memberID(raw domain.MemberID) (domain.MemberID, error) {
	id := domain.MemberID(strings.TrimSpace(string(raw)))
	if id == "" {
		return "", validationError("memberId", "must be non-empty")
	}
	return id, nil
}

// staffName resolves the display name of the acting staff user, falling back to UnknownStaff.
func (s *Service) staffName(ctx context.Context, subject domain.StaffSubject) string {
	if s.staff == nil || subject == "" {
		return UnknownStaff
	}
	st, err := s.staff.GetBySubject(ctx, subject)
	if err != nil {
		if !errors.Is(err, staffrepo.ErrNotFound) {
			s.log.Warn("staff lookup failed", "staff_subject", subject, "error", err)
		}
		return UnknownStaff
	}
	if name := strings.TrimSpace(st.DisplayName); name != "" {
		return name
	}
	return UnknownStaff
}
