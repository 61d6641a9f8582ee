// Package memberapi is an in-memory member service for local runs and tests.
package memberapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/platform/jsonx"
	clockport "github.com/coregym/member-card-api/internal/ports/out/clock"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
	"github.com/coregym/member-card-api/internal/ports/out/upstream"
)

const service = "member-api"

// Operation names accepted by FailOn.
const (
	OpGetProfile      = "GetProfile"
	OpGetAccess       = "GetAccess"
	OpGetJournal      = "GetJournal"
	OpAddJournalEntry = "AddJournalEntry"
	OpUpdateAccess    = "UpdateAccess"
	OpGetReceipts     = "GetReceipts"
	OpSendReceipt     = "SendReceipt"
	OpRefresh         = "Refresh"
	OpSearch          = "Search"
)

type journalEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	StaffName string `json:"staffName"`
	CreatedAt string `json:"createdAt"`
}

type member struct {
	profile  memberapi.Profile
	access   *memberapi.Access
	journal  []journalEntry
	receipts []json.RawMessage
}

// SentReceipt records one SendReceipt call.
type SentReceipt struct {
	MemberID domain.MemberID
	Request  memberapi.ReceiptRequest
}

// AccessChange records one UpdateAccess call.
type AccessChange struct {
	MemberID domain.MemberID
	Update   memberapi.AccessUpdate
}

// Service implements memberapi.Client in memory. It is safe for concurrent use.
type Service struct {
	mu       sync.Mutex
	clk      clockport.Clock
	members  map[domain.MemberID]*member
	failures map[string]error

	sentReceipts  []SentReceipt
	accessChanges []AccessChange
	refreshes     map[domain.MemberID]int
	receiptMonths []int
}

var _ memberapi.Client = (*Service)(nil)

// New returns an empty service. clk stamps journal entries; nil uses wall time.
func New(clk clockport.Clock) *Service {
	return &Service{
		clk:       clk,
		members:   make(map[domain.MemberID]*member),
		failures:  make(map[string]error),
		refreshes: make(map[domain.MemberID]int),
	}
}

// PutMember registers or replaces a member profile. The profile's ID is set to id.
func (s *Service) PutMember(id domain.MemberID, p memberapi.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = jsonx.Text(id)
	m := s.members[id]
	if m == nil {
		m = &member{}
		s.members[id] = m
	}
	m.profile = p
}

func (s *Service) PutAccess(id domain.MemberID, a memberapi.Access) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.members[id]; m != nil {
		m.access = &a
	}
}

func (s *Service) PutReceipts(id domain.MemberID, receipts ...json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.members[id]; m != nil {
		m.receipts = append(m.receipts, receipts...)
	}
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

func (s *Service) SentReceipts() []SentReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentReceipt(nil), s.sentReceipts...)
}

func (s *Service) AccessChanges() []AccessChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AccessChange(nil), s.accessChanges...)
}

func (s *Service) Refreshes(id domain.MemberID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes[id]
}

// ReceiptMonths lists the months argument of every GetReceipts call.
func (s *Service) ReceiptMonths() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.receiptMonths...)
}

func (s *Service) GetProfile(ctx context.Context, id domain.MemberID) (memberapi.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.lookup(ctx, OpGetProfile, id)
	if err != nil {
		return memberapi.Profile{}, err
	}
	return m.profile, nil
}

func (s *Service) GetAccess(ctx context.Context, id domain.MemberID) (memberapi.Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.lookup(ctx, OpGetAccess, id)
	if err != nil {
		return memberapi.Access{}, err
	}
	if m.access == nil {
		return memberapi.Access{}, nil
	}
	a := *m.access
	a.TrainingCards = append([]memberapi.TrainingCard(nil), a.TrainingCards...)
	return a, nil
}

func (s *Service) GetJournal(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.lookup(ctx, OpGetJournal, id)
	if err != nil {
		return nil, err
	}
	entries := m.journal
	if entries == nil {
		entries = []journalEntry{}
	}
	return json.Marshal(map[string]any{"entries": entries})
}

func (s *Service) AddJournalEntry(ctx context.Context, id domain.MemberID, in memberapi.JournalEntryInput) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.lookup(ctx, OpAddJournalEntry, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Entry) == "" {
		return nil, &upstream.StatusError{Service: service, Status: http.StatusBadRequest, Message: "Anteckningen är tom"}
	}
	e := journalEntry{
		ID:        uuid.NewString(),
		Text:      in.Entry,
		StaffName: in.StaffName,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	m.journal = append(m.journal, e)
	return json.Marshal(map[string]any{"ok": true, "id": e.ID})
}

func (s *Service) UpdateAccess(ctx context.Context, id domain.MemberID, in memberapi.AccessUpdate) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.lookup(ctx, OpUpdateAccess, id)
	if err != nil {
		return nil, err
	}
	if m.access == nil {
		m.access = &memberapi.Access{}
	}
	door := make(map[string]any, len(in.Door))
	for k, v := range in.Door {
		door[k] = v
	}
	m.access.Door = door
	s.accessChanges = append(s.accessChanges, AccessChange{MemberID: id, Update: in})
	return json.Marshal(map[string]any{"ok": true, "door": door})
}

func (s *Service) GetReceipts(ctx context.Context, id domain.MemberID, months int) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.lookup(ctx, OpGetReceipts, id)
	if err != nil {
		return nil, err
	}
	s.receiptMonths = append(s.receiptMonths, months)
	receipts := m.receipts
	if receipts == nil {
		receipts = []json.RawMessage{}
	}
	return json.Marshal(map[string]any{"receipts": receipts})
}

func (s *Service) SendReceipt(ctx context.Context, id domain.MemberID, in memberapi.ReceiptRequest) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.lookup(ctx, OpSendReceipt, id)
	if err != nil {
		return nil, err
	}
	if !m.hasCard(in.TrainingCardID) {
		return nil, &upstream.StatusError{Service: service, Status: http.StatusNotFound, Message: "Träningskortet hittades inte"}
	}
	s.sentReceipts = append(s.sentReceipts, SentReceipt{MemberID: id, Request: in})
	return json.Marshal(map[string]any{"sent": true})
}

func (s *Service) Refresh(ctx context.Context, id domain.MemberID) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(ctx, OpRefresh, id); err != nil {
		return nil, err
	}
	s.refreshes[id]++
	return json.Marshal(map[string]any{"refreshed": true})
}

func (s *Service) Search(ctx context.Context, query string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(ctx, OpSearch); err != nil {
		return nil, err
	}
	tokens := strings.Fields(strings.ToLower(query))
	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	results := make([]map[string]any, 0)
	for _, id := range ids {
		m := s.members[domain.MemberID(id)]
		hay := strings.ToLower(strings.Join([]string{m.profile.Name, m.profile.FirstName, m.profile.LastName, m.profile.Email}, " "))
		if matchesAll(hay, tokens) {
			results = append(results, map[string]any{
				"id":        id,
				"name":      m.profile.Name,
				"firstname": m.profile.FirstName,
				"lastname":  m.profile.LastName,
			})
		}
	}
	return json.Marshal(map[string]any{"results": results})
}

func (s *Service) ReceiptDownloadURL(id domain.MemberID, cardID domain.CardID, fromDate, toDate string) string {
	u := "memory://member-api/member/" + url.PathEscape(string(id)) + "/receipt/" + url.PathEscape(string(cardID)) + "/download"
	if fromDate != "" {
		u += "?" + url.Values{"fromDate": {fromDate}, "toDate": {toDate}}.Encode()
	}
	return u
}

func (s *Service) lookup(ctx context.Context, op string, id domain.MemberID) (*member, error) {
	if err := s.fail(ctx, op); err != nil {
		return nil, err
	}
	m, ok := s.members[id]
	if !ok {
		return nil, &upstream.StatusError{Service: service, Status: http.StatusNotFound, Message: "Medlemmen hittades inte"}
	}
	return m, nil
}

func (s *Service) fail(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failures[op]
}

func (s *Service) now() time.Time {
	if s.clk == nil {
		return time.Now()
	}
	return s.clk.Now()
}

func (m *member) hasCard(id domain.CardID) bool {
	if m.access == nil {
		return false
	}
	for _, tc := range m.access.TrainingCards {
		if tc.ID.String() == string(id) {
			return true
		}
	}
	return false
}

func matchesAll(hay string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}
