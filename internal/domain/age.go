package domain

import (
	"strings"
	"time"
)

// CalculateAge returns the age in whole years at now, derived from a personal identity code
// (YYYYMMDDNNNN or YYMMDDNNNN, hyphens allowed) or, failing that, an explicit birth date.
//
// A code of at least 8 characters always takes the code path; if it turns out too short
// after stripping hyphens, the age is unknown even when birthDate is set.
//
// A birth year of 0 is treated as unknown.
//
// Ten-digit codes resolve the century by a heuristic: a two-digit year more than one year
// ahead of the current short year is taken as 19xx, everything else as 20xx.
func CalculateAge(personalCode, birthDate string, now time.Time) (int, bool) {
	y, m, d, ok := birthFromInputs(personalCode, birthDate, now)
	if !ok || y == 0 {
		return 0, false
	}
	return AgeOn(y, m, d, now), true
}

// AgeOn counts whole years between the birth date and now.
func AgeOn(birthYear, birthMonth, birthDay int, now time.Time) int {
	age := now.Year() - birthYear
	month := int(now.Month())
	if month < birthMonth || (month == birthMonth && now.Day() < birthDay) {
		age--
	}
	return age
}

// ResolveCentury maps a two-digit year to a four-digit one relative to now.
func ResolveCentury(yy int, now time.Time) int {
	currentYearShort := now.Year() % 100
	if yy > currentYearShort+1 {
		return 1900 + yy
	}
	return 2000 + yy
}

func birthFromInputs(personalCode, birthDate string, now time.Time) (year, month, day int, ok bool) {
	if len(personalCode) >= 8 {
		return birthFromPersonalCode(personalCode, now)
	}
	if birthDate != "" {
		return birthFromDate(birthDate)
	}
	return 0, 0, 0, false
}

func birthFromPersonalCode(code string, now time.Time) (year, month, day int, ok bool) {
	pnr := strings.ReplaceAll(code, "-", "")
	switch {
	case len(pnr) >= 12:
		year, ok = digits(pnr, 0, 4)
		if !ok {
			return 0, 0, 0, false
		}
		month, ok = digits(pnr, 4, 6)
		if !ok {
			return 0, 0, 0, false
		}
		day, ok = digits(pnr, 6, 8)
		return year, month, day, ok
	case len(pnr) >= 10:
		yy, ok := digits(pnr, 0, 2)
		if !ok {
			return 0, 0, 0, false
		}
		month, ok = digits(pnr, 2, 4)
		if !ok {
			return 0, 0, 0, false
		}
		day, ok = digits(pnr, 4, 6)
		return ResolveCentury(yy, now), month, day, ok
	default:
		return 0, 0, 0, false
	}
}

func birthFromDate(s string) (year, month, day int, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Year(), int(t.Month()), t.Day(), true
		}
		s = s[:10]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return 0, 0, 0, false
	}
	return t.Year(), int(t.Month()), t.Day(), true
}

func digits(s string, from, to int) (int, bool) {
	n := 0
	for i := from; i < to; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
