package domain

import "time"

// TrainingCard is the normalized input to the membership partition.
type TrainingCard struct {
	ID         CardID
	Name       string
	CardTypeID string
	ValidFrom  string
	ValidUntil string
	Price      string
	PayMethod  string
	Discount   *Discount
}

// Today renders now as a calendar date in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return now.Format(time.DateOnly)
}

// IsActiveOn reports whether a card is active on the given day (YYYY-MM-DD).
// Cards without an end date are open-ended (autogiro); the end date itself is still active.
func IsActiveOn(validUntil, today string) bool {
	if validUntil == "" {
		return true
	}
	return datePart(validUntil) >= today
}

// PartitionMemberships splits cards into active and expired, preserving input order.
// Every card lands in exactly one of the two lists.
func PartitionMemberships(cards []TrainingCard, today string) Memberships {
	out := Memberships{
		Active:  []ActiveMembership{},
		Expired: []ExpiredMembership{},
	}
	for _, c := range cards {
		if IsActiveOn(c.ValidUntil, today) {
			out.Active = append(out.Active, ActiveMembership{
				ID:         c.ID,
				Name:       c.Name,
				CardTypeID: c.CardTypeID,
				ValidFrom:  c.ValidFrom,
				ValidUntil: c.ValidUntil,
				IsAutogiro: c.ValidUntil == "",
				Price:      c.Price,
				PayMethod:  c.PayMethod,
				Discount:   c.Discount,
			})
			continue
		}
		out.Expired = append(out.Expired, ExpiredMembership{
			ID:         c.ID,
			Name:       c.Name,
			ValidFrom:  c.ValidFrom,
			ValidUntil: c.ValidUntil,
			Discount:   c.Discount,
		})
	}
	return out
}

// datePart trims a timestamp to its YYYY-MM-DD prefix so it compares lexically with a day.
func datePart(s string) string {
	if len(s) > len(time.DateOnly) {
		return s[:len(time.DateOnly)]
	}
	return s
}
