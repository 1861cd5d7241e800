package chrono

import "time"

// CycleDays is the length of one full season calendar.
const CycleDays = 17

// Phase of the season calendar.
type Phase string

const (
	PhaseRegular   Phase = "regular"    // days 1-14: league fixtures
	PhasePlayoffs  Phase = "playoffs"   // days 15-16: elimination brackets
	PhaseOffSeason Phase = "off_season" // day 17: rollover
)

// SeasonInfo is the derived position inside the repeating calendar.
type SeasonInfo struct {
	DayInCycle   int   `json:"day_in_cycle"` // 1..CycleDays
	SeasonNumber int   `json:"season_number"`
	Phase        Phase `json:"phase"`
}

// Info maps now onto the season calendar anchored at start. DayInCycle wraps
// every CycleDays days and SeasonNumber increments exactly on the wrap.
// A now before start clamps to day 1 of season 1.
func Info(start, now time.Time) SeasonInfo {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	days := int(elapsed / (24 * time.Hour))

	info := SeasonInfo{
		DayInCycle:   days%CycleDays + 1,
		SeasonNumber: days/CycleDays + 1,
	}
	switch {
	case info.DayInCycle <= 14:
		info.Phase = PhaseRegular
	case info.DayInCycle <= 16:
		info.Phase = PhasePlayoffs
	default:
		info.Phase = PhaseOffSeason
	}
	return info
}
