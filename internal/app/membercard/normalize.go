package membercard

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/coregym/member-card-api/internal/domain"
	"github.com/coregym/member-card-api/internal/ports/out/memberapi"
)

// journalMarkdown renders journal notes. Raw HTML in notes is dropped, never passed through.
var journalMarkdown = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))

// searchLimit caps the number of search hits returned.
const searchLimit = 10

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func normalizeMember(p memberapi.Profile) domain.Member {
	m := domain.Member{
		ID:             domain.MemberID(p.ID.String()),
		Name:           firstNonEmpty(p.Name, domain.NormalizeHumanName(p.FirstName+" "+p.LastName)),
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Email:          firstNonEmpty(p.Email, p.Mail),
		Phone:          firstNonEmpty(p.Phone.String(), p.Mobile.String()),
		PersonalNumber: p.PersonalCodeNumber.String(),
		Address:        p.Address,
		Zipcode:        p.Zipcode.String(),
		CardNumber:     p.CardNumber.String(),
		ImageKey:       firstNonEmpty(p.ImageKey, p.Image),
		Created:        p.Created,
		HomeSiteID:     p.HomeSiteID.Ptr(),
		Archived:       bool(p.Archived),
		SignedUpBy:     firstNonEmpty(p.SignedUpBy, p.CreatedBy),
	}
	if m.HomeSiteID != nil {
		m.HomeGym = domain.HomeGym(*m.HomeSiteID)
	}
	return m
}

func deriveAge(p memberapi.Profile, now time.Time) domain.Age {
	pnr := p.PersonalCodeNumber.String()
	var years *int
	if n, ok := domain.CalculateAge(pnr, p.Birthday, now); ok {
		years = &n
	}
	return domain.NewAge(years, p.Birthday, pnr)
}

func trainingCards(raw []memberapi.TrainingCard) []domain.TrainingCard {
	out := make([]domain.TrainingCard, 0, len(raw))
	for _, tc := range raw {
		out = append(out, domain.TrainingCard{
			ID:         domain.CardID(tc.ID.String()),
			Name:       tc.CardTypeName,
			CardTypeID: tc.CardTypeID.String(),
			ValidFrom:  tc.ValidFrom,
			ValidUntil: strings.TrimSpace(tc.ValidUntil),
			Price:      tc.Price.String(),
			PayMethod:  tc.PayMethod,
			Discount:   discount(tc.Discount),
		})
	}
	return out
}

// discount prefers a fixed amount over a percentage. A zero fixed amount counts as absent.
func discount(d *memberapi.Discount) *domain.Discount {
	if d == nil {
		return nil
	}
	out := &domain.Discount{Name: d.Name}
	switch fixed := strings.TrimSpace(d.Fixed.String()); {
	case fixed != "" && fixed != "0":
		out.Amount = fixed
	case strings.TrimSpace(d.Percent.String()) != "":
		out.Amount = strings.TrimSpace(d.Percent.String()) + "%"
	}
	return out
}

func normalizeAccess(a *memberapi.Access) domain.Access {
	out := domain.Access{
		CanOpen: map[string]any{},
		Door:    map[string]any{},
		Booking: map[string]any{},
	}
	if a != nil {
		if a.CanOpen != nil {
			out.CanOpen = a.CanOpen
		}
		if a.Door != nil {
			out.Door = a.Door
		}
		if a.Booking != nil {
			out.Booking = a.Booking
		}
	}
	out.AccessibleGyms = domain.AccessibleGyms(out.CanOpen)
	out.Summary = domain.AccessSummary(out.CanOpen)
	return out
}

// listFromShape returns the first array found under keys, or raw itself when it is an array.
// Any other shape yields nil.
func listFromShape(raw json.RawMessage, keys ...string) []any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var list []any
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return list
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		for _, k := range keys {
			var list []any
			if v, ok := obj[k]; ok && json.Unmarshal(v, &list) == nil && list != nil {
				return list
			}
		}
	}
	return nil
}

// field returns the first key of m holding a non-empty string or a number.
func field(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func normalizeHistory(raw json.RawMessage) []domain.Visit {
	list := listFromShape(raw, "history", "visits")
	visits := make([]domain.Visit, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		gym := field(m, "gym", "site")
		visits = append(visits, domain.Visit{
			Gym:     gym,
			GymName: domain.GymName(gym),
			Time:    visitTime(m),
			Source:  field(m, "source", "channel"),
		})
	}
	return domain.DedupVisits(visits)
}

// visitTime reads checkinTime, date or timestamp. A numeric timestamp is unix milliseconds.
func visitTime(m map[string]any) string {
	for _, k := range []string{"checkinTime", "date", "timestamp"} {
		switch v := m[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64:
			return time.UnixMilli(int64(v)).UTC().Format(time.RFC3339Nano)
		}
	}
	return ""
}

func normalizeJournal(raw json.RawMessage) []domain.JournalEntry {
	list := listFromShape(raw, "entries")
	out := make([]domain.JournalEntry, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text := field(m, "text", "entry")
		out = append(out, domain.JournalEntry{
			Text:      text,
			HTML:      renderJournalText(text),
			StaffName: firstNonEmpty(field(m, "staffName"), UnknownStaff),
			CreatedAt: field(m, "createdAt", "date"),
		})
	}
	return out
}

func renderJournalText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := journalMarkdown.Convert([]byte(text), &buf); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

// normalizeBlock maps absent and JSON null to nil so the card shows null.
func normalizeBlock(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}

// decodePrefs reads a preference object. ok is false when raw is present but not an object.
func decodePrefs(raw json.RawMessage) (prefs domain.Preferences, ok bool) {
	raw = normalizeBlock(raw)
	if raw == nil {
		return nil, true
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, false
	}
	return prefs, true
}

func normalizeSearch(raw json.RawMessage) []domain.MemberSummary {
	list := listFromShape(raw, "results", "members")
	out := make([]domain.MemberSummary, 0, len(list))
	for _, item := range list {
		if len(out) == searchLimit {
			break
		}
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := field(m, "id")
		if id == "" {
			continue
		}
		out = append(out, domain.MemberSummary{
			ID:   domain.MemberID(id),
			Name: firstNonEmpty(domain.NormalizeHumanName(field(m, "name")), domain.NormalizeHumanName(field(m, "firstname")+" "+field(m, "lastname"))),
		})
	}
	return out
}
