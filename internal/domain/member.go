package domain

import "encoding/json"

// Member is the canonical identity and contact view of a member, normalized from the
// member service's profile payload.
type Member struct {
	ID             MemberID `json:"id"`
	Name           string   `json:"name"`
	FirstName      string   `json:"firstName,omitempty"`
	LastName       string   `json:"lastName,omitempty"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	PersonalNumber string   `json:"personalNumber,omitempty"`
	Address        string   `json:"address,omitempty"`
	Zipcode        string   `json:"zipcode,omitempty"`
	CardNumber     string   `json:"cardNumber,omitempty"`
	ImageKey       string   `json:"imageKey,omitempty"`
	Created        string   `json:"created,omitempty"`
	HomeSiteID     *int     `json:"homeSiteId,omitempty"`
	HomeGym        string   `json:"homeGym,omitempty"`
	Archived       bool     `json:"archived"`
	SignedUpBy     string   `json:"signedUpBy,omitempty"`
}

// Age is always derived, never read from upstream.
//
// Years is nil when no birth date could be determined; IsMinor and IsAdult are then both false.
type Age struct {
	Years                 *int    `json:"years"`
	Birthday              *string `json:"birthday"`
	IsMinor               bool    `json:"isMinor"`
	IsAdult               bool    `json:"isAdult"`
	MissingPersonalNumber bool    `json:"missingPersonalNumber"`
}

// AdultAge is the age at which a member stops being a minor.
const AdultAge = 18

// NewAge derives the age block from a computed age (nil = unknown).
func NewAge(years *int, birthday string, personalNumber string) Age {
	a := Age{
		Years:                 years,
		MissingPersonalNumber: personalNumber == "",
	}
	if birthday != "" {
		b := birthday
		a.Birthday = &b
	}
	if years != nil {
		a.IsMinor = *years < AdultAge
		a.IsAdult = !a.IsMinor
	}
	return a
}

// Discount is the optional price reduction attached to a training card.
type Discount struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type ActiveMembership struct {
	ID         CardID    `json:"id"`
	Name       string    `json:"name"`
	CardTypeID string    `json:"cardtypeId,omitempty"`
	ValidFrom  string    `json:"validFrom,omitempty"`
	ValidUntil string    `json:"validUntil,omitempty"`
	IsAutogiro bool      `json:"isAutogiro"`
	Price      string    `json:"price,omitempty"`
	PayMethod  string    `json:"payMethod,omitempty"`
	Discount   *Discount `json:"discount"`
}

type ExpiredMembership struct {
	ID         CardID    `json:"id"`
	Name       string    `json:"name"`
	ValidFrom  string    `json:"validFrom,omitempty"`
	ValidUntil string    `json:"validUntil"`
	Discount   *Discount `json:"discount"`
}

// Memberships is the active/expired partition of a member's training cards.
type Memberships struct {
	Active  []ActiveMembership  `json:"active"`
	Expired []ExpiredMembership `json:"expired"`
}

// Access combines the raw capability map with what we derive from it.
type Access struct {
	CanOpen        map[string]any `json:"canOpen"`
	AccessibleGyms []string       `json:"accessibleGyms"`
	Summary        []string       `json:"summary"`
	Door           map[string]any `json:"door"`
	Booking        map[string]any `json:"booking"`
}

// JournalEntry is a free-text staff note.
type JournalEntry struct {
	Text      string `json:"text"`
	HTML      string `json:"html"`
	StaffName string `json:"staffName"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// MemberRecord is the unified member card. It is built fresh for every read and never stored.
//
// Stats, Onboarding, Prefs and Push are passed through untouched; they are nil when their
// source failed or returned nothing.
type MemberRecord struct {
	Member      Member          `json:"member"`
	Age         Age             `json:"age"`
	Memberships Memberships     `json:"memberships"`
	Access      Access          `json:"access"`
	Stats       json.RawMessage `json:"stats"`
	Onboarding  json.RawMessage `json:"onboarding"`
	Prefs       Preferences     `json:"prefs"`
	Push        json.RawMessage `json:"push"`
	History     []Visit         `json:"history"`
	Journal     []JournalEntry  `json:"journal"`
}

// MemberSummary is a search hit.
type MemberSummary struct {
	ID   MemberID `json:"id"`
	Name string   `json:"name"`
}
