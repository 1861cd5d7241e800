package brackets

import (
	"errors"
	"fmt"
)

var ErrNotEnoughTeams = errors.New("not enough teams for a league schedule (minimum 2)")

// Fixture is one league pairing on a specific match day (1-based).
type Fixture struct {
	MatchDay   int
	HomeTeamID int
	AwayTeamID int
}

// LeagueFixtures builds a round-robin schedule with the circle method. With
// legs=2 the second half mirrors the first with home and away swapped. An
// odd team count gives each team one bye per rotation. maxDays > 0 truncates
// the schedule for groups that joined the cycle late.
func LeagueFixtures(teamIDs []int, legs, maxDays int) ([]Fixture, error) {
	if len(teamIDs) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughTeams, len(teamIDs))
	}
	if legs != 1 && legs != 2 {
		return nil, fmt.Errorf("league schedule supports 1 or 2 legs, got %d", legs)
	}

	const bye = 0
	ids := make([]int, len(teamIDs))
	copy(ids, teamIDs)
	if len(ids)%2 != 0 {
		ids = append(ids, bye)
	}

	n := len(ids)
	daysPerLeg := n - 1
	fixtures := make([]Fixture, 0, legs*daysPerLeg*n/2)

	for day := 0; day < daysPerLeg; day++ {
		for i := 0; i < n/2; i++ {
			home, away := ids[i], ids[n-1-i]
			if home == bye || away == bye {
				continue
			}
			// Alternate venue by day so no team hosts the whole first leg.
			if day%2 == 1 {
				home, away = away, home
			}
			fixtures = append(fixtures, Fixture{MatchDay: day + 1, HomeTeamID: home, AwayTeamID: away})
			if legs == 2 {
				fixtures = append(fixtures, Fixture{MatchDay: daysPerLeg + day + 1, HomeTeamID: away, AwayTeamID: home})
			}
		}
		// Rotate everything but the first slot.
		last := ids[n-1]
		copy(ids[2:], ids[1:n-1])
		ids[1] = last
	}

	if maxDays > 0 {
		trimmed := fixtures[:0]
		for _, f := range fixtures {
			if f.MatchDay <= maxDays {
				trimmed = append(trimmed, f)
			}
		}
		fixtures = trimmed
	}
	return fixtures, nil
}
