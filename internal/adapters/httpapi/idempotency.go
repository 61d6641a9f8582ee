package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/idempotency"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
)

// writeOnce wraps a write action with Idempotency-Key handling.
//
// Under a key, the first body seen for (staff, member, route) is remembered. A later request
// with the same key and the same body gets the stored success response back without the
// action running again; a different body under the same key is rejected with 409. Requests
// without the header, or without a store, run normally.
func (s *Server) writeOnce(w http.ResponseWriter, r *http.Request, route string, memberID domain.MemberID, body any, run func() (int, any, error)) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" || s.idem == nil {
		s.respond(w, r, run)
		return
	}
	ctx := r.Context()

	bodyHash, err := hashBody(body)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	sub, _ := StaffSubjectFromContext(ctx)
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  sub,
		MemberID: memberID,
		Method:   r.Method,
		Route:    route,
		BodyHash: "",
	}
	meta, ok, err := s.idem.Get(ctx, metaFP)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if ok && string(meta.Body) != bodyHash {
		writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
		return
	}
	if !ok {
		_ = s.idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.clk.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.idem.Get(ctx, respFP); err != nil {
		s.writeAppError(w, r, err)
		return
	} else if ok && rec.StatusCode >= 200 && rec.StatusCode < 300 {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	status, payload, err := run()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	_ = s.idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        append(b, '\n'),
		CreatedAt:   s.clk.Now().UTC(),
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, run func() (int, any, error)) {
	status, payload, err := run()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, status, payload)
}

// hashBody hashes the request as decoded, so formatting differences in the raw JSON do not
// change the fingerprint.
func hashBody(body any) (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}
