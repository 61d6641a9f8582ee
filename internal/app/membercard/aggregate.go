package membercard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
	"github.com/coregym/member-card-api/internal/ports/out/upstream"
)

// Card sources, used in span names and logs.
const (
	SourceProfile    = "profile"
	SourceAccess     = "access"
	SourceStats      = "stats"
	SourceOnboarding = "onboarding"
	SourcePrefs      = "prefs"
	SourceHistory    = "history"
	SourceJournal    = "journal"
	SourcePush       = "push"
)

// GetMemberCard fetches all eight sources concurrently and assembles the member card.
//
// Only the profile is required. Any other source that fails shows up as an empty block and a
// WARN log line. Nothing is cancelled when the profile fails: every fetch runs to completion
// and is joined before the error is returned.
func (s *Service) GetMemberCard(ctx context.Context, rawID domain.MemberID) (domain.MemberRecord, error) {
	id, err := memberID(rawID)
	if err != nil {
		return domain.MemberRecord{}, err
	}

	ctx, span := s.tracer.Start(ctx, "membercard.aggregate", trace.WithAttributes(attribute.String("member.id", string(id))))
	defer span.End()

	var (
		profile    memberapi.Profile
		access     *memberapi.Access
		stats      json.RawMessage
		onboarding json.RawMessage
		prefsRaw   json.RawMessage
		historyRaw json.RawMessage
		journalRaw json.RawMessage
		push       json.RawMessage
	)

	var g errgroup.Group
	g.Go(func() error {
		p, err := s.fetchProfile(ctx, id)
		profile = p
		return err
	})
	g.Go(func() error {
		if a, ok := fetchOptional(ctx, s, SourceAccess, id, s.members.GetAccess); ok {
			access = &a
		}
		return nil
	})
	g.Go(func() error {
		stats, _ = fetchOptional(ctx, s, SourceStats, id, s.stats.GetStats)
		return nil
	})
	g.Go(func() error {
		onboarding, _ = fetchOptional(ctx, s, SourceOnboarding, id, s.stats.GetOnboarding)
		return nil
	})
	g.Go(func() error {
		prefsRaw, _ = fetchOptional(ctx, s, SourcePrefs, id, s.stats.GetPrefs)
		return nil
	})
	g.Go(func() error {
		historyRaw, _ = fetchOptional(ctx, s, SourceHistory, id, s.stats.GetHistory)
		return nil
	})
	g.Go(func() error {
		journalRaw, _ = fetchOptional(ctx, s, SourceJournal, id, s.members.GetJournal)
		return nil
	})
	g.Go(func() error {
		push, _ = fetchOptional(ctx, s, SourcePush, id, s.push.GetSubscription)
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile unavailable")
		return domain.MemberRecord{}, err
	}

	prefs, ok := decodePrefs(prefsRaw)
	if !ok {
		s.log.Warn("member card source malformed", "source", SourcePrefs, "member_id", id)
	}

	now := s.now()
	var cards []domain.TrainingCard
	if access != nil {
		cards = trainingCards(access.TrainingCards)
	}
	rec := domain.MemberRecord{
		Member:      normalizeMember(profile),
		Age:         deriveAge(profile, now),
		Access:      normalizeAccess(access),
		Stats:       normalizeBlock(stats),
		Onboarding:  normalizeBlock(onboarding),
		Prefs:       prefs,
		Push:        normalizeBlock(push),
		History:     normalizeHistory(historyRaw),
		Journal:     normalizeJournal(journalRaw),
		Memberships: domain.PartitionMemberships(cards, domain.Today(now, s.loc)),
	}
	if rec.Member.ID == "" {
		rec.Member.ID = id
	}
	return rec, nil
}

func (s *Service) fetchProfile(ctx context.Context, id domain.MemberID) (memberapi.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "membercard.fetch."+SourceProfile)
	defer span.End()

	p, err := s.members.GetProfile(ctx, id)
	if err == nil {
		return p, nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "profile fetch failed")
	s.log.Error("member profile unavailable", "member_id", id, "error", err)

	if errors.Is(err, context.Canceled) {
		return memberapi.Profile{}, err
	}
	msg := upstream.Message(err)
	if msg == "" {
		msg = msgMemberUnavailable
	}
	if upstream.IsNotFound(err) {
		return memberapi.Profile{}, &Error{Status: http.StatusNotFound, Code: CodeMemberNotFound, Message: msg}
	}
	return memberapi.Profile{}, &Error{Status: http.StatusBadGateway, Code: CodeMemberUnavailable, Message: msg}
}

// fetchOptional runs one non-critical fetch. A failure is logged and reported as ok=false.
func fetchOptional[T any](ctx context.Context, s *Service, source string, id domain.MemberID, fetch func(context.Context, domain.MemberID) (T, error)) (T, bool) {
	ctx, span := s.tracer.Start(ctx, "membercard.fetch."+source)
	defer span.End()

	v, err := fetch(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("degraded", true))
		s.log.Warn("member card source unavailable", "source", source, "member_id", id, "error", err)
		var zero T
		return zero, false
	}
	span.SetAttributes(attribute.Bool("degraded", false))
	return v, true
}
