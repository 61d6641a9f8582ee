package membercard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memmemberapi "github.com/coregym/member-card-api/internal/adapters/memory/memberapi"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
)

func TestListReceipts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.seed(t)
	f.members.PutReceipts(testMember, json.RawMessage(`{"id":"r-1","amount":399}`))

	got, err := f.svc.ListReceipts(context.Background(), testMember, 0)
	require.NoError(t, err)
	jsonEq(t, `{"receipts":[{"id":"r-1","amount":399}]}`, got)

	_, err = f.svc.ListReceipts(context.Background(), testMember, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 3}, f.members.ReceiptMonths())

	for _, months := range []int{-1, 121} {
		_, err = f.svc.ListReceipts(context.Background(), testMember, months)
		requireAppError(t, err, http.StatusUnprocessableEntity, CodeValidation)
	}

	f.members.FailOn(memmemberapi.OpGetReceipts, errors.New("down"))
	got, err = f.svc.ListReceipts(context.Background(), testMember, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSendReceipt_DefaultRange(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.seed(t)

	out, err := f.svc.SendReceipt(context.Background(), testMember, SendReceiptInput{CardID: "c-today"})
	require.NoError(t, err)
	jsonEq(t, `{"sent":true}`, out)

	sent := f.members.SentReceipts()
	require.Len(t, sent, 1)
	assert.Equal(t, memberapi.ReceiptRequest{
		TrainingCardID: "c-today",
		FromDate:       "2023-06-15",
		ToDate:         "2024-06-15",
	}, sent[0].Request)
}

func TestSendReceipt_ExplicitRangeAndEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.seed(t)

	_, err := f.svc.SendReceipt(context.Background(), testMember, SendReceiptInput{
		CardID:   "c-old",
		FromDate: "2023-01-01",
		ToDate:   "2023-12-31",
		Email:    " kassa@example.com ",
	})
	require.NoError(t, err)
	sent := f.members.SentReceipts()
	require.Len(t, sent, 1)
	assert.Equal(t, "2023-01-01", sent[0].Request.FromDate)
	assert.Equal(t, "2023-12-31", sent[0].Request.ToDate)
	assert.Equal(t, "kassa@example.com", sent[0].Request.Email)
}

func TestSendReceipt_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    SendReceiptInput
		field string
	}{
		{name: "missing card", in: SendReceiptInput{CardID: " "}, field: "cardId"},
		{name: "from after to", in: SendReceiptInput{CardID: "c-old", FromDate: "2024-02-01", ToDate: "2024-01-01"}, field: "fromDate"},
		{name: "bad from", in: SendReceiptInput{CardID: "c-old", FromDate: "01/02/2024"}, field: "fromDate"},
		{name: "bad to", in: SendReceiptInput{CardID: "c-old", ToDate: "tomorrow"}, field: "toDate"},
		{name: "bad email", in: SendReceiptInput{CardID: "c-old", Email: "not-an-address"}, field: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, Options{})
			f.seed(t)

			_, err := f.svc.SendReceipt(context.Background(), testMember, tt.in)
			ae := requireAppError(t, err, http.StatusUnprocessableEntity, CodeValidation)
			assert.Contains(t, ae.Details, tt.field)
			assert.Empty(t, f.members.SentReceipts())
		})
	}
}

func TestSendReceipt_UpstreamMessageWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.seed(t)

	_, err := f.svc.SendReceipt(context.Background(), testMember, SendReceiptInput{CardID: "c-missing"})
	ae := requireAppError(t, err, http.StatusNotFound, CodeMemberNotFound)
	assert.Equal(t, "Träningskortet hittades inte", ae.Message)

	f.members.FailOn(memmemberapi.OpSendReceipt, errors.New("smtp down"))
	_, err = f.svc.SendReceipt(context.Background(), testMember, SendReceiptInput{CardID: "c-old"})
	ae = requireAppError(t, err, http.StatusBadGateway, CodeUpstreamError)
	assert.Equal(t, msgReceiptFailed, ae.Message)
}

func TestSendReceipt_RateLimited(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{ReceiptRatePerMinute: 1})
	f.seed(t)

	_, err := f.svc.SendReceipt(context.Background(), testMember, SendReceiptInput{CardID: "c-old"})
	require.NoError(t, err)
	_, err = f.svc.SendReceipt(context.Background(), testMember, SendReceiptInput{CardID: "c-old"})
	requireAppError(t, err, http.StatusTooManyRequests, CodeRateLimited)
	assert.Len(t, f.members.SentReceipts(), 1)
}

func TestReceiptDownloadURL(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})

	got, err := f.svc.ReceiptDownloadURL(testMember, "c-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "memory://member-api/member/m-1/receipt/c-1/download", got)

	got, err = f.svc.ReceiptDownloadURL(testMember, "c-1", "2024-01-01", "")
	require.NoError(t, err)
	assert.Equal(t, "memory://member-api/member/m-1/receipt/c-1/download?fromDate=2024-01-01&toDate=2024-06-15", got)

	_, err = f.svc.ReceiptDownloadURL(testMember, "c-1", "", "2024-01-01")
	requireAppError(t, err, http.StatusUnprocessableEntity, CodeValidation)

	_, err = f.svc.ReceiptDownloadURL(testMember, "c-1", "2024-07-01", "2024-01-01")
	requireAppError(t, err, http.StatusUnprocessableEntity, CodeValidation)
}
