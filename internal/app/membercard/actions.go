package membercard

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
)

// AddJournalEntry stores a staff note on the member and returns the refreshed card.
// The author is the acting staff user's directory name.
func (s *Service) AddJournalEntry(ctx context.Context, rawID domain.MemberID, staff domain.StaffSubject, text string) (domain.MemberRecord, error) {
	id, err := memberID(rawID)
	if err != nil {
		return domain.MemberRecord{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.MemberRecord{}, validationError("entry", "must be non-empty")
	}
	if utf8.RuneCountInString(text) > maxJournalRunes {
		return domain.MemberRecord{}, validationError("entry", "must be at most 4000 characters")
	}

	in := memberapi.JournalEntryInput{Entry: text, StaffName: s.staffName(ctx, staff)}
	if _, err := s.members.AddJournalEntry(ctx, id, in); err != nil {
		s.log.Error("journal write failed", "member_id", id, "error", err)
		return domain.MemberRecord{}, upstreamFailure(err, msgJournalFailed)
	}
	s.log.Info("journal entry added", "member_id", id, "staff", in.StaffName)
	return s.GetMemberCard(ctx, id)
}

// UpdateAccess replaces the member's door configuration and returns the member service's reply.
func (s *Service) UpdateAccess(ctx context.Context, rawID domain.MemberID, staff domain.StaffSubject, in AccessUpdateInput) (json.RawMessage, error) {
	id, err := memberID(rawID)
	if err != nil {
		return nil, err
	}
	if in.Door == nil {
		return nil, validationError("door", "must be an object")
	}

	out, err := s.members.UpdateAccess(ctx, id, memberapi.AccessUpdate{
		Door:      in.Door,
		UpdatedBy: s.staffName(ctx, staff),
		Reason:    strings.TrimSpace(in.Reason),
	})
	if err != nil {
		s.log.Error("access update failed", "member_id", id, "error", err)
		return nil, upstreamFailure(err, msgAccessFailed)
	}
	return normalizeBlock(out), nil
}

// TogglePreference flips one check-in preference and writes the whole preference object back.
// The returned preferences are the ones stored; on any failure nothing changed.
func (s *Service) TogglePreference(ctx context.Context, rawID domain.MemberID, key string) (domain.Preferences, error) {
	id, err := memberID(rawID)
	if err != nil {
		return nil, err
	}
	if !domain.IsKnownPreference(key) {
		return nil, validationError("key", "must be one of showOnScreen, playSound, geoCheckin")
	}

	raw, err := s.stats.GetPrefs(ctx, id)
	if err != nil {
		return nil, upstreamFailure(err, msgPrefsReadFailed)
	}
	current, ok := decodePrefs(raw)
	if !ok {
		return nil, &Error{Status: http.StatusBadGateway, Code: CodeUpstreamError, Message: msgPrefsReadFailed}
	}

	next := current.Toggled(key)
	if _, err := s.stats.UpdatePrefs(ctx, id, next); err != nil {
		s.log.Error("prefs update failed", "member_id", id, "key", key, "error", err)
		return nil, upstreamFailure(err, msgPrefsFailed)
	}
	return next, nil
}

// RefreshMember asks the member service to re-sync the member from the membership system,
// then rebuilds the card.
func (s *Service) RefreshMember(ctx context.Context, rawID domain.MemberID) (domain.MemberRecord, error) {
	id, err := memberID(rawID)
	if err != nil {
		return domain.MemberRecord{}, err
	}
	if _, err := s.members.Refresh(ctx, id); err != nil {
		s.log.Error("member refresh failed", "member_id", id, "error", err)
		return domain.MemberRecord{}, upstreamFailure(err, msgRefreshFailed)
	}
	return s.GetMemberCard(ctx, id)
}

// SearchMembers looks members up by free text. The query must be at least two characters.
func (s *Service) SearchMembers(ctx context.Context, query string) ([]domain.MemberSummary, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < 2 {
		return nil, validationError("q", "must be at least 2 characters")
	}
	raw, err := s.members.Search(ctx, q)
	if err != nil {
		return nil, upstreamFailure(err, msgSearchFailed)
	}
	return normalizeSearch(raw), nil
}

// OpenDoor is not wired to any door controller.
func (s *Service) OpenDoor(ctx context.Context, rawID domain.MemberID, gym string) error {
	if _, err := memberID(rawID); err != nil {
		return err
	}
	s.log.Info("door open requested", "member_id", rawID, "gym", gym)
	return &Error{Status: http.StatusNotImplemented, Code: CodeNotImplemented, Message: msgDoorNotAvailable}
}
