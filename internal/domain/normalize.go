package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for member display names composed from first and last name.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
