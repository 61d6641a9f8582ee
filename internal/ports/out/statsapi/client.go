// Package statsapi is the outbound port to the statistics service, which owns visit stats,
// onboarding progress, check-in preferences and visit history.
package statsapi

import (
	"context"
	"encoding/json"

	"github.com/coregym/member-card-api/internal/domain"
)

// Client talks to the stats service. All reads are returned raw; the stats service does not
// use credentials.
type Client interface {
	GetStats(ctx context.Context, id domain.MemberID) (json.RawMessage, error)
	GetOnboarding(ctx context.Context, id domain.MemberID) (json.RawMessage, error)
	GetPrefs(ctx context.Context, id domain.MemberID) (json.RawMessage, error)
	GetHistory(ctx context.Context, id domain.MemberID) (json.RawMessage, error)

	// UpdatePrefs replaces the whole preference object.
	UpdatePrefs(ctx context.Context, id domain.MemberID, prefs domain.Preferences) (json.RawMessage, error)
}
