package domain

import (
	"strings"
	"time"
)

// Visit sources as reported by the check-in systems.
const (
	VisitSourceMobile     = "mobile"
	VisitSourceKiosk      = "kiosk"
	VisitSourceCard       = "card"
	VisitSourceStaffEntry = "staff-entry"
	VisitSourceBackfill   = "backfill"
)

// DuplicateWindow is the bucket width used to collapse repeated check-ins.
const DuplicateWindow = 5 * time.Second

// Visit is one check-in event.
type Visit struct {
	Gym     string `json:"gym"`
	GymName string `json:"gymName"`
	Time    string `json:"time"`
	Source  string `json:"source,omitempty"`
}

type visitKey struct {
	gym    string
	bucket int64
}

// DedupVisits drops check-ins that fall in the same gym and the same DuplicateWindow bucket
// as an earlier one. Order is preserved and the first occurrence wins. Visits without a
// parseable time are always kept.
func DedupVisits(visits []Visit) []Visit {
	out := make([]Visit, 0, len(visits))
	seen := make(map[visitKey]struct{}, len(visits))
	for _, v := range visits {
		ms, ok := ParseVisitTime(v.Time)
		if !ok {
			out = append(out, v)
			continue
		}
		k := visitKey{gym: v.Gym, bucket: floorDiv(ms, DuplicateWindow.Milliseconds())}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ParseVisitTime parses a check-in timestamp into unix milliseconds.
func ParseVisitTime(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
