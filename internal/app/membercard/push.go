package membercard

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/pushapi"
	"github.com/coregym/member-card-api/internal/ports/out/upstream"
)

const (
	maxPushTitleRunes = 100
	maxPushBodyRunes  = 500
)

const msgScheduleDeclined = "push service declined the scheduled notification"

// SendPush sends a notification now, or schedules it when in.SendAt is set.
//
// A failed schedule is an error unless in.FallbackToImmediate is set, in which case the
// notification is sent immediately and the outcome says so. A send the push service declines
// is reported as Sent=false, not as an error.
func (s *Service) SendPush(ctx context.Context, rawID domain.MemberID, in PushInput) (PushOutcome, error) {
	id, err := memberID(rawID)
	if err != nil {
		return PushOutcome{}, err
	}
	n, err := s.pushNotification(id, in)
	if err != nil {
		return PushOutcome{}, err
	}
	if !s.pushLimiter.Allow() {
		return PushOutcome{}, &Error{Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: msgRateLimited}
	}

	if in.SendAt == nil {
		return s.sendNow(ctx, n, PushOutcome{})
	}

	d, err := s.push.Schedule(ctx, n)
	if err == nil && d.Accepted {
		s.log.Info("push scheduled", "member_id", id, "send_at", n.SendAt)
		return PushOutcome{Scheduled: true}, nil
	}

	scheduleErr := msgScheduleDeclined
	if err != nil {
		scheduleErr = firstNonEmpty(upstream.Message(err), err.Error())
	}
	s.log.Warn("push schedule failed", "member_id", id, "fallback", in.FallbackToImmediate, "error", scheduleErr)

	if !in.FallbackToImmediate {
		return PushOutcome{ScheduleError: scheduleErr}, &Error{
			Status:  http.StatusBadGateway,
			Code:    CodePushScheduleFailed,
			Message: firstNonEmpty(upstream.Message(err), msgPushScheduleFailed),
			Details: map[string]any{"scheduleError": scheduleErr},
		}
	}
	n.SendAt = time.Time{}
	return s.sendNow(ctx, n, PushOutcome{FellBack: true, ScheduleError: scheduleErr})
}

func (s *Service) sendNow(ctx context.Context, n pushapi.Notification, out PushOutcome) (PushOutcome, error) {
	d, err := s.push.Send(ctx, n)
	if err != nil {
		s.log.Error("push send failed", "member_id", n.MemberID, "error", err)
		failure := upstreamFailure(err, msgPushFailed)
		if ae, ok := failure.(*Error); ok && out.ScheduleError != "" {
			ae.Details = map[string]any{"scheduleError": out.ScheduleError}
		}
		return out, failure
	}
	out.Sent = d.Accepted
	s.log.Info("push sent", "member_id", n.MemberID, "accepted", d.Accepted, "fell_back", out.FellBack)
	return out, nil
}

func (s *Service) pushNotification(id domain.MemberID, in PushInput) (pushapi.Notification, error) {
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	switch {
	case title == "":
		return pushapi.Notification{}, validationError("title", "must be non-empty")
	case utf8.RuneCountInString(title) > maxPushTitleRunes:
		return pushapi.Notification{}, validationError("title", "must be at most 100 characters")
	case body == "":
		return pushapi.Notification{}, validationError("body", "must be non-empty")
	case utf8.RuneCountInString(body) > maxPushBodyRunes:
		return pushapi.Notification{}, validationError("body", "must be at most 500 characters")
	}
	n := pushapi.Notification{MemberID: id, Title: title, Body: body}
	if in.SendAt != nil {
		if !in.SendAt.After(s.clk.Now()) {
			return pushapi.Notification{}, validationError("sendAt", "must be in the future")
		}
		n.SendAt = *in.SendAt
	}
	return n, nil
}
