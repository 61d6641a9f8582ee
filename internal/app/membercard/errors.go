package membercard

import (
	"context"
	"errors"
	"net/http"

	"github.com/coregym/member-card-api/internal/ports/out/upstream"
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeMemberNotFound     = "MEMBER_NOT_FOUND"
	CodeMemberUnavailable  = "MEMBER_UNAVAILABLE"
	CodeUpstreamRejected   = "UPSTREAM_REJECTED"
	CodeUpstreamError      = "UPSTREAM_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNotImplemented     = "NOT_IMPLEMENTED"
	CodePushScheduleFailed = "PUSH_SCHEDULE_FAILED"
)

// Fallback messages shown to staff when a backend gives no message of its own.
const (
	msgMemberUnavailable  = "Kunde inte hämta medlem"
	msgJournalFailed      = "Kunde inte spara anteckning"
	msgAccessFailed       = "Kunde inte uppdatera access"
	msgPrefsReadFailed    = "Kunde inte hämta preferenser"
	msgPrefsFailed        = "Kunde inte uppdatera preferenser"
	msgReceiptFailed      = "Kunde inte skicka kvitto"
	msgRefreshFailed      = "Kunde inte uppdatera från medlemssystemet"
	msgSearchFailed       = "Sökning misslyckades"
	msgPushFailed         = "Kunde inte skicka notis"
	msgPushScheduleFailed = "Kunde inte schemalägga notis"
	msgDoorNotAvailable   = "Dörröppning är inte tillgänglig"
	msgRateLimited        = "För många förfrågningar, försök igen om en stund"
)

func validationError(field, problem string) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "invalid " + field,
		Details: map[string]any{field: problem},
	}
}

// upstreamFailure turns a failed backend call into an *Error, preferring the backend's own
// message. Context cancellation passes through untouched.
func upstreamFailure(err error, fallback string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	msg := upstream.Message(err)
	if msg == "" {
		msg = fallback
	}

	var se *upstream.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusNotFound:
			return &Error{Status: http.StatusNotFound, Code: CodeMemberNotFound, Message: msg}
		case se.Status >= 400 && se.Status < 500:
			return &Error{Status: http.StatusUnprocessableEntity, Code: CodeUpstreamRejected, Message: msg}
		}
	}
	return &Error{Status: http.StatusBadGateway, Code: CodeUpstreamError, Message: msg}
}
