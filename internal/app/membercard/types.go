package membercard

import (
	"time"

	"github.com/coregym/member-card-api/internal/domain"
)

// Journal notes longer than this are rejected.
const maxJournalRunes = 4000

type AccessUpdateInput struct {
	Door   map[string]any
	Reason string
}

// SendReceiptInput asks for a receipt email. Empty dates take the defaults: ToDate is today
// and FromDate is twelve months before ToDate. Empty Email uses the address on file.
type SendReceiptInput struct {
	CardID   domain.CardID
	FromDate string
	ToDate   string
	Email    string
}

// PushInput describes a push notification. A nil SendAt sends immediately.
type PushInput struct {
	Title  string
	Body   string
	SendAt *time.Time
	// FallbackToImmediate sends right away when scheduling fails. Off by default.
	FallbackToImmediate bool
}

// PushOutcome reports what actually happened to a push request. Scheduled and Sent are
// independent: a failed schedule that fell back to an immediate send has Scheduled=false,
// FellBack=true and Sent reflecting the immediate attempt.
type PushOutcome struct {
	Scheduled     bool
	Sent          bool
	FellBack      bool
	ScheduleError string
}
