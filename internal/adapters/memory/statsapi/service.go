// Package statsapi is an in-memory stats service for local runs and tests.
package statsapi

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/statsapi"
)

// Operation names accepted by FailOn.
const (
	OpGetStats      = "GetStats"
	OpGetOnboarding = "GetOnboarding"
	OpGetPrefs      = "GetPrefs"
	OpGetHistory    = "GetHistory"
	OpUpdatePrefs   = "UpdatePrefs"
)

type member struct {
	stats      json.RawMessage
	onboarding json.RawMessage
	prefs      json.RawMessage
	history    json.RawMessage
}

// Service implements statsapi.Client in memory. Unknown members read as empty (nil) blocks.
type Service struct {
	mu       sync.Mutex
	members  map[domain.MemberID]*member
	failures map[string]error
	writes   []domain.Preferences
}

var _ statsapi.Client = (*Service)(nil)

func New() *Service {
	return &Service{
		members:  make(map[domain.MemberID]*member),
		failures: make(map[string]error),
	}
}

func (s *Service) get(id domain.MemberID) *member {
	m := s.members[id]
	if m == nil {
		m = &member{}
		s.members[id] = m
	}
	return m
}

func (s *Service) PutStats(id domain.MemberID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).stats = json.RawMessage(raw)
}

func (s *Service) PutOnboarding(id domain.MemberID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).onboarding = json.RawMessage(raw)
}

func (s *Service) PutPrefs(id domain.MemberID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).prefs = json.RawMessage(raw)
}

func (s *Service) PutHistory(id domain.MemberID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).history = json.RawMessage(raw)
}

// FailOn makes every later call of op return err. A nil err clears the failure.
func (s *Service) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// PrefWrites lists every preference object written, oldest first.
func (s *Service) PrefWrites() []domain.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Preferences(nil), s.writes...)
}

func (s *Service) read(ctx context.Context, op string, id domain.MemberID, pick func(*member) json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[op]; err != nil {
		return nil, err
	}
	m := s.members[id]
	if m == nil {
		return nil, nil
	}
	raw := pick(m)
	if raw == nil {
		return nil, nil
	}
	return append(json.RawMessage(nil), raw...), nil
}

func (s *Service) GetStats(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return s.read(ctx, OpGetStats, id, func(m *member) json.RawMessage { return m.stats })
}

func (s *Service) GetOnboarding(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return s.read(ctx, OpGetOnboarding, id, func(m *member) json.RawMessage { return m.onboarding })
}

func (s *Service) GetPrefs(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return s.read(ctx, OpGetPrefs, id, func(m *member) json.RawMessage { return m.prefs })
}

func (s *Service) GetHistory(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	return s.read(ctx, OpGetHistory, id, func(m *member) json.RawMessage { return m.history })
}

func (s *Service) UpdatePrefs(ctx context.Context, id domain.MemberID, prefs domain.Preferences) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpUpdatePrefs]; err != nil {
		return nil, err
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return nil, err
	}
	s.get(id).prefs = raw
	cp := make(domain.Preferences, len(prefs))
	for k, v := range prefs {
		cp[k] = v
	}
	s.writes = append(s.writes, cp)
	return json.Marshal(map[string]any{"ok": true})
}
