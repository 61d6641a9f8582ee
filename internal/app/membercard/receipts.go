package membercard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
)

const (
	DefaultReceiptMonths = 12
	MaxReceiptMonths     = 120
)

// ListReceipts returns the member's receipt history for the last months months (0 means 12).
// A failing member service yields nil rather than an error.
func (s *Service) ListReceipts(ctx context.Context, rawID domain.MemberID, months int) (json.RawMessage, error) {
	id, err := memberID(rawID)
	if err != nil {
		return nil, err
	}
	if months == 0 {
		months = DefaultReceiptMonths
	}
	if months < 1 || months > MaxReceiptMonths {
		return nil, validationError("months", "must be between 1 and 120")
	}
	raw, err := s.members.GetReceipts(ctx, id, months)
	if err != nil {
		s.log.Warn("receipts unavailable", "member_id", id, "error", err)
		return nil, nil
	}
	return normalizeBlock(raw), nil
}

// SendReceipt asks the member service to email a receipt for one training card.
func (s *Service) SendReceipt(ctx context.Context, rawID domain.MemberID, in SendReceiptInput) (json.RawMessage, error) {
	id, err := memberID(rawID)
	if err != nil {
		return nil, err
	}
	cardID := domain.CardID(strings.TrimSpace(string(in.CardID)))
	if cardID == "" {
		return nil, validationError("cardId", "must be non-empty")
	}
	from, to, err := s.receiptRange(in.FromDate, in.ToDate)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, validationError("email", "must be a valid email address")
		}
	}
	if !s.receiptLimiter.Allow() {
		return nil, &Error{Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: msgRateLimited}
	}

	out, err := s.members.SendReceipt(ctx, id, memberapi.ReceiptRequest{
		TrainingCardID: cardID,
		FromDate:       from,
		ToDate:         to,
		Email:          email,
	})
	if err != nil {
		s.log.Error("receipt send failed", "member_id", id, "card_id", cardID, "error", err)
		return nil, upstreamFailure(err, msgReceiptFailed)
	}
	s.log.Info("receipt sent", "member_id", id, "card_id", cardID, "from", from, "to", to)
	return normalizeBlock(out), nil
}

// ReceiptDownloadURL returns a direct link to a receipt PDF. When only fromDate is given the
// range ends today.
func (s *Service) ReceiptDownloadURL(rawID domain.MemberID, cardID domain.CardID, fromDate, toDate string) (string, error) {
	id, err := memberID(rawID)
	if err != nil {
		return "", err
	}
	cardID = domain.CardID(strings.TrimSpace(string(cardID)))
	if cardID == "" {
		return "", validationError("cardId", "must be non-empty")
	}
	fromDate = strings.TrimSpace(fromDate)
	toDate = strings.TrimSpace(toDate)
	if fromDate == "" {
		if toDate != "" {
			return "", validationError("fromDate", "is required when toDate is set")
		}
		return s.members.ReceiptDownloadURL(id, cardID, "", ""), nil
	}
	if toDate == "" {
		toDate = s.today()
	}
	if err := checkRange(fromDate, toDate); err != nil {
		return "", err
	}
	return s.members.ReceiptDownloadURL(id, cardID, fromDate, toDate), nil
}

// receiptRange fills in the default range and validates it.
func (s *Service) receiptRange(from, to string) (string, string, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if to == "" {
		to = s.today()
	}
	if from == "" {
		end, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return "", "", validationError("toDate", "must be a date (YYYY-MM-DD)")
		}
		from = end.AddDate(0, -DefaultReceiptMonths, 0).Format(time.DateOnly)
	}
	if err := checkRange(from, to); err != nil {
		return "", "", err
	}
	return from, to, nil
}

func checkRange(from, to string) error {
	f, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return validationError("fromDate", "must be a date (YYYY-MM-DD)")
	}
	t, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return validationError("toDate", "must be a date (YYYY-MM-DD)")
	}
	if f.After(t) {
		return validationError("fromDate", "must not be after toDate")
	}
	return nil
}
