// Package pushapi is an in-memory push service for local runs and tests.
package pushapi

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/pushapi"
)

// Operation names accepted by FailOn.
const (
	OpGetSubscription = "GetSubscription"
	OpSend            = "Send"
	OpSchedule        = "Schedule"
)

// Service implements pushapi.Client in memory and records what it was asked to deliver.
type Service struct {
	mu            sync.Mutex
	subscriptions map[domain.MemberID]json.RawMessage
	failures      map[string]error
	rejected      map[string]bool

	sent      []pushapi.Notification
	scheduled []pushapi.Notification
}

var _ pushapi.Client = (*Service)(nil)

func New() *Service {
	return &Service{
		subscriptions: make(map[domain.MemberID]json.RawMessage),
		failures:      make(map[string]error),
		rejected:      make(map[string]bool),
	}
}

func (s *Service) PutSubscription(id domain.MemberID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[id] = json.RawMessage(raw)
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

// Reject makes op answer successfully but with sent=false.
func (s *Service) Reject(op string, reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[op] = reject
}

func (s *Service) Sent() []pushapi.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pushapi.Notification(nil), s.sent...)
}

func (s *Service) Scheduled() []pushapi.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pushapi.Notification(nil), s.scheduled...)
}

func (s *Service) GetSubscription(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpGetSubscription]; err != nil {
		return nil, err
	}
	raw, ok := s.subscriptions[id]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), raw...), nil
}

func (s *Service) Send(ctx context.Context, n pushapi.Notification) (pushapi.Delivery, error) {
	return s.deliver(ctx, OpSend, n, &s.sent)
}

func (s *Service) Schedule(ctx context.Context, n pushapi.Notification) (pushapi.Delivery, error) {
	return s.deliver(ctx, OpSchedule, n, &s.scheduled)
}

func (s *Service) deliver(ctx context.Context, op string, n pushapi.Notification, log *[]pushapi.Notification) (pushapi.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return pushapi.Delivery{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[op]; err != nil {
		return pushapi.Delivery{}, err
	}
	accepted := !s.rejected[op]
	if accepted {
		*log = append(*log, n)
	}
	raw, _ := json.Marshal(map[string]any{"sent": accepted})
	return pushapi.Delivery{Accepted: accepted, Raw: raw}, nil
}
