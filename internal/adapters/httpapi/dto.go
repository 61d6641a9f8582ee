package httpapi

import (
	"encoding/json"
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/coregym/member-card-api/internal/app/membercard"
	"github.com/coregym/member-card-api/internal/domain"
)

type csrfTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

type JournalEntryRequest struct {
	Entry string `json:"entry"`
}

type UpdateAccessRequest struct {
	Door   map[string]any `json:"door"`
	Reason string         `json:"reason"`
}

// SendReceiptRequest dates are YYYY-MM-DD. An explicit null email means the address on file,
// the same as leaving it out.
type SendReceiptRequest struct {
	FromDate *openapi_types.Date       `json:"fromDate,omitempty"`
	ToDate   *openapi_types.Date       `json:"toDate,omitempty"`
	Email    nullable.Nullable[string] `json:"email,omitempty"`
}

type PushRequest struct {
	Title               string                       `json:"title"`
	Body                string                       `json:"body"`
	SendAt              nullable.Nullable[time.Time] `json:"sendAt,omitempty"`
	FallbackToImmediate bool                         `json:"fallbackToImmediate,omitempty"`
}

type SearchMembersResponse struct {
	Members []domain.MemberSummary `json:"members"`
}

type PreferencesResponse struct {
	Prefs domain.Preferences `json:"prefs"`
}

type ReceiptsResponse struct {
	Receipts json.RawMessage `json:"receipts"`
}

type UpstreamResultResponse struct {
	Result json.RawMessage `json:"result"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

type PushResponse struct {
	Scheduled     bool   `json:"scheduled"`
	Sent          bool   `json:"sent"`
	FellBack      bool   `json:"fellBack"`
	ScheduleError string `json:"scheduleError,omitempty"`
}

func (b SendReceiptRequest) input(cardID domain.CardID) membercard.SendReceiptInput {
	in := membercard.SendReceiptInput{CardID: cardID}
	if b.FromDate != nil {
		in.FromDate = b.FromDate.Format(openapi_types.DateFormat)
	}
	if b.ToDate != nil {
		in.ToDate = b.ToDate.Format(openapi_types.DateFormat)
	}
	if b.Email.IsSpecified() && !b.Email.IsNull() {
		if v, err := b.Email.Get(); err == nil {
			in.Email = v
		}
	}
	return in
}

func (b PushRequest) input() membercard.PushInput {
	in := membercard.PushInput{
		Title:               b.Title,
		Body:                b.Body,
		FallbackToImmediate: b.FallbackToImmediate,
	}
	if b.SendAt.IsSpecified() && !b.SendAt.IsNull() {
		if v, err := b.SendAt.Get(); err == nil {
			in.SendAt = &v
		}
	}
	return in
}

func pushResponse(o membercard.PushOutcome) PushResponse {
	return PushResponse{
		Scheduled:     o.Scheduled,
		Sent:          o.Sent,
		FellBack:      o.FellBack,
		ScheduleError: o.ScheduleError,
	}
}

// rawOrEmpty keeps a nil upstream reply from rendering as a missing field.
func rawOrEmpty(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
