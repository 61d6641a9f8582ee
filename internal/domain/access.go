package domain

import (
	"encoding/json"
	"sort"
)

// Gym keys as used by the access capability map and visit history.
const (
	GymVegastaden    = "vegastaden"
	GymTungelsta     = "tungelsta"
	GymVasterhaninge = "vasterhaninge"
	GymEgym          = "egym"
	GymUngdom        = "ungdom"
)

// homeSites lists gyms in home-site id order (id 1 is the first entry).
var homeSites = []string{GymVegastaden, GymTungelsta, GymVasterhaninge, GymEgym}

var gymNames = map[string]string{
	GymVegastaden:    "Vegastaden",
	GymTungelsta:     "Tungelsta",
	GymVasterhaninge: "Västerhaninge",
	GymEgym:          "EGYM",
}

// HomeGym maps a 1-based home-site id to its gym key, or "" when unknown.
func HomeGym(siteID int) string {
	if siteID < 1 || siteID > len(homeSites) {
		return ""
	}
	return homeSites[siteID-1]
}

// GymName returns the display name for a gym key, falling back to the key itself.
func GymName(key string) string {
	if n, ok := gymNames[key]; ok {
		return n
	}
	return key
}

// AccessibleGyms lists the capability keys whose value is truthy, sorted.
func AccessibleGyms(canOpen map[string]any) []string {
	out := make([]string, 0, len(canOpen))
	for k, v := range canOpen {
		if Truthy(v) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// AccessSummary condenses the capability map into the access groups staff recognize.
// The broadest group wins; EGYM is reported alongside whatever else applies.
func AccessSummary(canOpen map[string]any) []string {
	has := func(k string) bool { return Truthy(canOpen[k]) }

	out := []string{}
	switch {
	case has(GymVegastaden):
		out = append(out, "Alla klubbar")
	case has(GymTungelsta) || has(GymVasterhaninge):
		out = append(out, "Tungelsta + VH")
	case has(GymUngdom):
		out = append(out, "Ungdom")
	}
	if has(GymEgym) {
		out = append(out, "EGYM")
	}
	return out
}

// Truthy applies loose truthiness to decoded JSON: false, 0, "", null and absent are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}
