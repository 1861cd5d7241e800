package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/season-engine/models"
)

func entriesWithSeeds(seeds ...int) []models.TournamentEntry {
	entries := make([]models.TournamentEntry, len(seeds))
	for i, s := range seeds {
		entries[i] = models.TournamentEntry{ID: 100 + s, TournamentID: 1, TeamID: 10 + s, Seed: s}
	}
	return entries
}

func TestNumRounds(t *testing.T) {
	for capacity, want := range map[int]int{2: 1, 4: 2, 8: 3, 16: 4} {
		got, err := NumRounds(capacity)
		require.NoError(t, err)
		assert.Equal(t, want, got, "capacity %d", capacity)
	}

	_, err := NumRounds(6)
	assert.ErrorIs(t, err, ErrNotPowerOfTwo)

	_, err = NumRounds(1)
	assert.ErrorIs(t, err, ErrNotEnoughEntries)
}

func TestPairSeedsIgnoresStorageOrder(t *testing.T) {
	// Deliberately shuffled: pairing must follow seeds, not slice order.
	entries := entriesWithSeeds(5, 1, 8, 3, 7, 2, 6, 4)

	pairs, err := PairSeeds(entries)
	require.NoError(t, err)
	require.Len(t, pairs, 4)

	wantPairs := [][2]int{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	for i, want := range wantPairs {
		assert.Equal(t, want[0], pairs[i].Home.Seed)
		assert.Equal(t, want[1], pairs[i].Away.Seed)
	}
}

func TestPairWinnersKeepsSlotOrder(t *testing.T) {
	// Round-1 winners in slot order; upsets must not reshuffle the bracket.
	winners := entriesWithSeeds(2, 3, 6, 7)

	pairs, err := PairWinners(winners)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, 2, pairs[0].Home.Seed)
	assert.Equal(t, 3, pairs[0].Away.Seed)
	assert.Equal(t, 6, pairs[1].Home.Seed)
	assert.Equal(t, 7, pairs[1].Away.Seed)
}

func TestPairRejectsOddCount(t *testing.T) {
	_, err := PairWinners(entriesWithSeeds(1, 2, 3))
	assert.ErrorIs(t, err, ErrOddEntryCount)

	_, err = PairSeeds(entriesWithSeeds(1))
	assert.ErrorIs(t, err, ErrNotEnoughEntries)
}

func TestWinnerTeamID(t *testing.T) {
	score := func(h, a int) (*int, *int) { return &h, &a }

	m := &models.Match{ID: 1, HomeTeamID: 11, AwayTeamID: 12, HomeSeed: 1, AwaySeed: 8}
	m.HomeScore, m.AwayScore = score(3, 1)
	winner, loser, err := WinnerTeamID(m)
	require.NoError(t, err)
	assert.Equal(t, 11, winner)
	assert.Equal(t, 12, loser)

	m.HomeScore, m.AwayScore = score(0, 2)
	winner, loser, err = WinnerTeamID(m)
	require.NoError(t, err)
	assert.Equal(t, 12, winner)
	assert.Equal(t, 11, loser)

	// Drawn score: the better seed advances.
	m.HomeScore, m.AwayScore = score(2, 2)
	winner, _, err = WinnerTeamID(m)
	require.NoError(t, err)
	assert.Equal(t, 11, winner)

	reversed := &models.Match{ID: 2, HomeTeamID: 13, AwayTeamID: 14, HomeSeed: 6, AwaySeed: 3}
	reversed.HomeScore, reversed.AwayScore = score(1, 1)
	winner, loser, err = WinnerTeamID(reversed)
	require.NoError(t, err)
	assert.Equal(t, 14, winner)
	assert.Equal(t, 13, loser)

	unscored := &models.Match{ID: 3, HomeTeamID: 11, AwayTeamID: 12}
	_, _, err = WinnerTeamID(unscored)
	assert.ErrorIs(t, err, ErrMatchNotScored)
}

func TestLoserBucket(t *testing.T) {
	// 8-entry bracket: finals loser 2, semifinal losers 3, quarterfinal losers 5.
	assert.Equal(t, 2, LoserBucket(3, 3))
	assert.Equal(t, 3, LoserBucket(2, 3))
	assert.Equal(t, 5, LoserBucket(1, 3))

	// 16-entry bracket adds a round of 9th-place losers.
	assert.Equal(t, 9, LoserBucket(1, 4))
}

func TestLeagueFixtures(t *testing.T) {
	teams := []int{1, 2, 3, 4, 5, 6, 7, 8}

	fixtures, err := LeagueFixtures(teams, 2, 0)
	require.NoError(t, err)
	// Double round robin with 8 teams: 14 match days, 4 games each.
	assert.Len(t, fixtures, 56)

	perDay := map[int]int{}
	meetings := map[[2]int]int{}
	appearances := map[int]int{}
	for _, f := range fixtures {
		perDay[f.MatchDay]++
		lo, hi := f.HomeTeamID, f.AwayTeamID
		if lo > hi {
			lo, hi = hi, lo
		}
		meetings[[2]int{lo, hi}]++
		appearances[f.HomeTeamID]++
		appearances[f.AwayTeamID]++
	}
	assert.Len(t, perDay, 14)
	for day, n := range perDay {
		assert.Equal(t, 4, n, "match day %d", day)
	}
	for pair, n := range meetings {
		assert.Equal(t, 2, n, "pair %v", pair)
	}
	for team, n := range appearances {
		assert.Equal(t, 14, n, "team %d", team)
	}
}

func TestLeagueFixturesTruncated(t *testing.T) {
	teams := []int{1, 2, 3, 4}

	fixtures, err := LeagueFixtures(teams, 1, 2)
	require.NoError(t, err)
	assert.Len(t, fixtures, 4)
	for _, f := range fixtures {
		assert.LessOrEqual(t, f.MatchDay, 2)
	}
}

func TestLeagueFixturesOddTeams(t *testing.T) {
	fixtures, err := LeagueFixtures([]int{1, 2, 3}, 1, 0)
	require.NoError(t, err)
	// Each rotation one team sits out: 3 match days, 1 game each.
	assert.Len(t, fixtures, 3)
}

func TestLeagueFixturesErrors(t *testing.T) {
	_, err := LeagueFixtures([]int{1}, 1, 0)
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	_, err = LeagueFixtures([]int{1, 2}, 3, 0)
	assert.Error(t, err)
}
