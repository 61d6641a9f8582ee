// Package memberapi is the outbound port to the member service, the source of truth for
// profiles, training cards, access rights, journal notes and receipts.
package memberapi

import (
	"context"
	"encoding/json"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/platform/jsonx"
)

// Profile is the member payload as the member service sends it. Several fields have
// alternates that older records use instead; normalization picks between them.
type Profile struct {
	ID                 jsonx.Text `json:"id"`
	Name               string     `json:"name"`
	FirstName          string     `json:"firstname"`
	LastName           string     `json:"lastname"`
	Email              string     `json:"email"`
	Mail               string     `json:"mail"`
	Phone              jsonx.Text `json:"phone"`
	Mobile             jsonx.Text `json:"mobile"`
	PersonalCodeNumber jsonx.Text `json:"personalCodeNumber"`
	Birthday           string     `json:"birthday"`
	Address            string     `json:"address"`
	Zipcode            jsonx.Text `json:"zipcode"`
	CardNumber         jsonx.Text `json:"cardNumber"`
	ImageKey           string     `json:"imagekey"`
	Image              string     `json:"image"`
	Created            string     `json:"created"`
	HomeSiteID         jsonx.Int  `json:"homesite_id"`
	Archived           jsonx.Bool `json:"archived"`
	SignedUpBy         string     `json:"signedUpBy"`
	CreatedBy          string     `json:"createdBy"`
}

// Access is the access-rights payload: the door capability map, booking rights and the
// member's training cards.
type Access struct {
	CanOpen       map[string]any `json:"canOpen"`
	Door          map[string]any `json:"door"`
	Booking       map[string]any `json:"booking"`
	TrainingCards []TrainingCard `json:"trainingcards"`
}

type TrainingCard struct {
	ID           jsonx.Text `json:"id"`
	CardTypeName string     `json:"cardtype_name"`
	CardTypeID   jsonx.Text `json:"cardtype_id"`
	ValidFrom    string     `json:"validFrom"`
	ValidUntil   string     `json:"validUntil"`
	Price        jsonx.Text `json:"price"`
	PayMethod    string     `json:"payMethod"`
	Discount     *Discount  `json:"discount"`
}

// Discount carries either a fixed amount or a percentage.
type Discount struct {
	Name    string     `json:"name"`
	Fixed   jsonx.Text `json:"fixed"`
	Percent jsonx.Text `json:"percent"`
}

type JournalEntryInput struct {
	Entry     string `json:"entry"`
	StaffName string `json:"staffName"`
}

type AccessUpdate struct {
	Door      map[string]any `json:"door"`
	UpdatedBy string         `json:"updatedBy"`
	Reason    string         `json:"reason"`
}

// ReceiptRequest asks the member service to email a receipt for a training card.
// Dates are YYYY-MM-DD; an empty Email means the address on file.
type ReceiptRequest struct {
	TrainingCardID domain.CardID `json:"trainingcardId"`
	FromDate       string        `json:"fromDate,omitempty"`
	ToDate         string        `json:"toDate,omitempty"`
	Email          string        `json:"email,omitempty"`
}

// Client talks to the member service. Errors for non-2xx responses are *upstream.StatusError.
//
// Journal, receipts, refresh and search results are returned raw: their shapes vary and the
// application layer normalizes them.
type Client interface {
	GetProfile(ctx context.Context, id domain.MemberID) (Profile, error)
	GetAccess(ctx context.Context, id domain.MemberID) (Access, error)
	GetJournal(ctx context.Context, id domain.MemberID) (json.RawMessage, error)
	AddJournalEntry(ctx context.Context, id domain.MemberID, in JournalEntryInput) (json.RawMessage, error)
	UpdateAccess(ctx context.Context, id domain.MemberID, in AccessUpdate) (json.RawMessage, error)
	GetReceipts(ctx context.Context, id domain.MemberID, months int) (json.RawMessage, error)
	SendReceipt(ctx context.Context, id domain.MemberID, in ReceiptRequest) (json.RawMessage, error)
	Refresh(ctx context.Context, id domain.MemberID) (json.RawMessage, error)
	Search(ctx context.Context, query string) (json.RawMessage, error)

	// ReceiptDownloadURL builds a direct link to a receipt PDF; it does not contact the service.
	ReceiptDownloadURL(id domain.MemberID, cardID domain.CardID, fromDate, toDate string) string
}
