package domain

// Preferences is the member's check-in preference object as stored by the stats service.
// Keys we don't know about are carried through untouched.
type Preferences map[string]any

const (
	PrefShowOnScreen = "showOnScreen"
	PrefPlaySound    = "playSound"
	PrefGeoCheckin   = "geoCheckin"
)

// prefDefaults are the effective values of unset keys. Unlisted keys default to false.
var prefDefaults = map[string]bool{
	PrefShowOnScreen: true,
	PrefPlaySound:    true,
	PrefGeoCheckin:   false,
}

// IsKnownPreference reports whether key is one of the toggles staff can flip.
func IsKnownPreference(key string) bool {
	_, ok := prefDefaults[key]
	return ok
}

// Bool returns the effective value of a boolean preference.
func (p Preferences) Bool(key string) bool {
	if v, ok := p[key]; ok && v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
		return Truthy(v)
	}
	return prefDefaults[key]
}

// Toggled returns a copy of p with key flipped relative to its effective value.
// p itself is never modified.
func (p Preferences) Toggled(key string) Preferences {
	out := make(Preferences, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[key] = !p.Bool(key)
	return out
}
