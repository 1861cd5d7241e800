// Package brackets holds the pure pairing and seeding rules for elimination
// play, the league fixture generator, and the websocket hub that streams
// bracket updates. Nothing here touches storage.
package brackets

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pitchside/season-engine/models"
)

var (
	ErrNotEnoughEntries = errors.New("not enough entries to pair (minimum 2)")
	ErrOddEntryCount    = errors.New("entry count must be even to pair a round")
	ErrNotPowerOfTwo    = errors.New("bracket capacity must be a power of two")
	ErrMatchNotScored   = errors.New("match has no recorded score")
)

// Pair is one elimination pairing. Home is always the better (lower) seed.
type Pair struct {
	Home models.TournamentEntry
	Away models.TournamentEntry
}

// NumRounds returns the number of elimination rounds a bracket of the given
// capacity plays: 8 entries play 3 rounds.
func NumRounds(capacity int) (int, error) {
	if capacity < 2 {
		return 0, ErrNotEnoughEntries
	}
	rounds := int(math.Round(math.Log2(float64(capacity))))
	if 1<<uint(rounds) != capacity {
		return 0, fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, capacity)
	}
	return rounds, nil
}

// PairSeeds produces the round-1 pairings from an explicit seed order:
// [1v2, 3v4, 5v6, ...]. Pairing never depends on the order entries were
// stored or created.
func PairSeeds(entries []models.TournamentEntry) ([]Pair, error) {
	sorted := make([]models.TournamentEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seed < sorted[j].Seed })
	return pairSequential(sorted)
}

// PairWinners pairs the winners of a completed round in bracket-slot order:
// winner[0] vs winner[1], winner[2] vs winner[3], and so on. Callers must
// pass winners ordered by the slot of the match they won.
func PairWinners(winners []models.TournamentEntry) ([]Pair, error) {
	return pairSequential(winners)
}

func pairSequential(entries []models.TournamentEntry) ([]Pair, error) {
	if len(entries) < 2 {
		return nil, ErrNotEnoughEntries
	}
	if len(entries)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrOddEntryCount, len(entries))
	}
	pairs := make([]Pair, 0, len(entries)/2)
	for i := 0; i < len(entries); i += 2 {
		home, away := entries[i], entries[i+1]
		if away.Seed < home.Seed {
			home, away = away, home
		}
		pairs = append(pairs, Pair{Home: home, Away: away})
	}
	return pairs, nil
}

// WinnerTeamID resolves a completed bracket match. Higher score wins; an
// equal score advances the better (lower) seed, so the outcome is
// deterministic without replays.
func WinnerTeamID(m *models.Match) (winner, loser int, err error) {
	if m.HomeScore == nil || m.AwayScore == nil {
		return 0, 0, fmt.Errorf("%w: match %d", ErrMatchNotScored, m.ID)
	}
	switch {
	case *m.HomeScore > *m.AwayScore:
		return m.HomeTeamID, m.AwayTeamID, nil
	case *m.HomeScore < *m.AwayScore:
		return m.AwayTeamID, m.HomeTeamID, nil
	case m.HomeSeed <= m.AwaySeed:
		return m.HomeTeamID, m.AwayTeamID, nil
	default:
		return m.AwayTeamID, m.HomeTeamID, nil
	}
}

// LoserBucket returns the shared final rank for teams eliminated in the
// given round of a bracket with totalRounds rounds: the finals loser ranks
// 2, semifinal losers rank 3, quarterfinal losers rank 5.
func LoserBucket(round, totalRounds int) int {
	if round >= totalRounds {
		return 2
	}
	return 1<<uint(totalRounds-round) + 1
}
