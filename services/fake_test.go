package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pitchside/season-engine/models"
	"github.com/pitchside/season-engine/repositories"
	"github.com/pitchside/season-engine/storage"
)

// In-memory collaborators with the same conditional-write semantics as the
// postgres implementations, so the services' race and idempotency behavior
// is exercised for real.

type fakeTournamentRepo struct {
	mu      sync.Mutex
	nextID  int
	rows    map[int]*models.Tournament
	matches *fakeMatchRepo // for advance-candidate derivation
}

func newFakeTournamentRepo(matches *fakeMatchRepo) *fakeTournamentRepo {
	return &fakeTournamentRepo{rows: make(map[int]*models.Tournament), matches: matches}
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	cp := *t
	r.rows[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("tournament %d: %w", id, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) UpdateStatusIf(_ context.Context, id int, from, to models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.Status != from {
		return repositories.ErrTournamentStatusConflict
	}
	t.Status = to
	return nil
}

func (r *fakeTournamentRepo) BeginCountdown(_ context.Context, id int, endsAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.Status != models.StatusRegistrationOpen {
		return repositories.ErrTournamentStatusConflict
	}
	t.Status = models.StatusCountdown
	ends := endsAt
	t.CountdownEndsAt = &ends
	return nil
}

func (r *fakeTournamentRepo) SetCurrentRound(_ context.Context, id, round int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.rows[id]; ok && t.CurrentRound < round {
		t.CurrentRound = round
	}
	return nil
}

func (r *fakeTournamentRepo) ExistsForSeason(_ context.Context, seasonID, divisionID int, kind models.TournamentKind) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if t.SeasonID == seasonID && t.DivisionID == divisionID && t.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTournamentRepo) ListFillExpired(_ context.Context, now time.Time) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.rows {
		if t.Status == models.StatusRegistrationOpen && !t.FillDeadline.After(now) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListCountdownExpired(_ context.Context, now time.Time) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.rows {
		if t.Status == models.StatusCountdown && t.CountdownEndsAt != nil && !t.CountdownEndsAt.After(now) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListAdvanceCandidates(_ context.Context) ([]*models.Tournament, error) {
	r.mu.Lock()
	candidates := make([]*models.Tournament, 0)
	for _, t := range r.rows {
		if t.Status == models.StatusInProgress && t.CurrentRound >= 1 {
			cp := *t
			candidates = append(candidates, &cp)
		}
	}
	r.mu.Unlock()

	var out []*models.Tournament
	for _, t := range candidates {
		current, _ := r.matches.ListByTournamentRound(context.Background(), t.ID, t.CurrentRound)
		if len(current) == 0 {
			continue
		}
		done := true
		for _, m := range current {
			if m.Status != models.MatchCompleted {
				done = false
				break
			}
		}
		if !done {
			continue
		}
		next, _ := r.matches.ListByTournamentRound(context.Background(), t.ID, t.CurrentRound+1)
		if len(next) > 0 {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type fakeMatchRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{rows: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) CreateRoundBatch(_ context.Context, tournamentID, round int, matches []*models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.TournamentID != nil && *m.TournamentID == tournamentID && m.Round != nil && *m.Round == round {
			return repositories.ErrRoundAlreadyExists
		}
	}
	for _, m := range matches {
		r.nextID++
		m.ID = r.nextID
		cp := *m
		r.rows[m.ID] = &cp
	}
	return nil
}

func (r *fakeMatchRepo) ListByTournamentRound(_ context.Context, tournamentID, round int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.rows {
		if m.TournamentID != nil && *m.TournamentID == tournamentID && m.Round != nil && *m.Round == round {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HomeSeed != out[j].HomeSeed {
			return out[i].HomeSeed < out[j].HomeSeed
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeMatchRepo) ListScheduledByTournament(_ context.Context, tournamentID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.rows {
		if m.TournamentID != nil && *m.TournamentID == tournamentID && m.Status == models.MatchScheduled {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) StartIfScheduled(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok || m.Status != models.MatchScheduled {
		return false, nil
	}
	m.Status = models.MatchInProgress
	return true, nil
}

func (r *fakeMatchRepo) StartScheduledBefore(_ context.Context, now time.Time) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int
	for _, m := range r.rows {
		if m.Status == models.MatchScheduled && !m.KickoffAt.After(now) {
			m.Status = models.MatchInProgress
			ids = append(ids, m.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *fakeMatchRepo) CompleteIf(_ context.Context, id, homeScore, awayScore int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return false, fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	if m.Status == models.MatchCompleted {
		return false, nil
	}
	m.HomeScore = &homeScore
	m.AwayScore = &awayScore
	m.Status = models.MatchCompleted
	return true, nil
}

func (r *fakeMatchRepo) LeagueScheduleExists(_ context.Context, seasonID, divisionID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.TournamentID == nil && m.SeasonID == seasonID && m.DivisionID == divisionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMatchRepo) CreateLeagueSchedule(_ context.Context, seasonID, divisionID int, matches []*models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.TournamentID == nil && m.SeasonID == seasonID && m.DivisionID == divisionID {
			return repositories.ErrScheduleAlreadyExists
		}
	}
	for _, m := range matches {
		r.nextID++
		m.ID = r.nextID
		cp := *m
		r.rows[m.ID] = &cp
	}
	return nil
}

type fakeEntryRepo struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.TournamentEntry
}

func newFakeEntryRepo() *fakeEntryRepo { return &fakeEntryRepo{} }

func (r *fakeEntryRepo) Create(_ context.Context, e *models.TournamentEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.TournamentID == e.TournamentID && existing.TeamID == e.TeamID {
			return repositories.ErrEntryConflict
		}
	}
	r.nextID++
	e.ID = r.nextID
	cp := *e
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeEntryRepo) CreateNextSeed(_ context.Context, tournamentID, teamID, capacity int) (*models.TournamentEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count, maxSeed := 0, 0
	for _, existing := range r.rows {
		if existing.TournamentID != tournamentID {
			continue
		}
		if existing.TeamID == teamID {
			return nil, repositories.ErrEntryConflict
		}
		count++
		if existing.Seed > maxSeed {
			maxSeed = existing.Seed
		}
	}
	if count >= capacity {
		return nil, repositories.ErrTournamentCapacity
	}
	r.nextID++
	e := &models.TournamentEntry{ID: r.nextID, TournamentID: tournamentID, TeamID: teamID, Seed: maxSeed + 1}
	cp := *e
	r.rows = append(r.rows, &cp)
	return e, nil
}

func (r *fakeEntryRepo) CountByTournament(_ context.Context, tournamentID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.rows {
		if e.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeEntryRepo) ListBySeed(_ context.Context, tournamentID int) ([]models.TournamentEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TournamentEntry
	for _, e := range r.rows {
		if e.TournamentID == tournamentID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seed < out[j].Seed })
	return out, nil
}

func (r *fakeEntryRepo) SetFinalRankIfUnset(_ context.Context, entryID, rank int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.ID == entryID {
			if e.FinalRank != nil {
				return false, nil
			}
			e.FinalRank = &rank
			return true, nil
		}
	}
	return false, fmt.Errorf("entry %d: %w", entryID, ErrNotFound)
}

func (r *fakeEntryRepo) MaxSeed(_ context.Context, tournamentID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, e := range r.rows {
		if e.TournamentID == tournamentID && e.Seed > max {
			max = e.Seed
		}
	}
	return max, nil
}

type fakeGrantRepo struct {
	mu   sync.Mutex
	rows map[[2]int]*models.RewardGrant
}

func newFakeGrantRepo() *fakeGrantRepo {
	return &fakeGrantRepo{rows: make(map[[2]int]*models.RewardGrant)}
}

func (r *fakeGrantRepo) InsertIfAbsent(_ context.Context, g *models.RewardGrant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int{g.TournamentID, g.TeamID}
	if _, ok := r.rows[key]; ok {
		return false, nil
	}
	cp := *g
	r.rows[key] = &cp
	return true, nil
}

func (r *fakeGrantRepo) Delete(_ context.Context, tournamentID, teamID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, [2]int{tournamentID, teamID})
	return nil
}

func (r *fakeGrantRepo) ListGrantedTeamIDs(_ context.Context, tournamentID int) (map[int]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]bool)
	for key := range r.rows {
		if key[0] == tournamentID {
			out[key[1]] = true
		}
	}
	return out, nil
}

type fakeSeasonRepo struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.Season
}

func newFakeSeasonRepo() *fakeSeasonRepo { return &fakeSeasonRepo{} }

func (r *fakeSeasonRepo) Current(_ context.Context) (*models.Season, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current *models.Season
	for _, s := range r.rows {
		if s.Status != models.SeasonActive {
			continue
		}
		if current == nil || s.Number > current.Number {
			current = s
		}
	}
	if current == nil {
		return nil, fmt.Errorf("active season: %w", ErrNotFound)
	}
	cp := *current
	return &cp, nil
}

func (r *fakeSeasonRepo) Create(_ context.Context, s *models.Season) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.Number == s.Number {
			return repositories.ErrSeasonConflict
		}
	}
	r.nextID++
	s.ID = r.nextID
	cp := *s
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeSeasonRepo) ExistsNumber(_ context.Context, number int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSeasonRepo) Archive(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.ID == id {
			s.Status = models.SeasonArchived
		}
	}
	return nil
}

type fakeDivisionRepo struct {
	mu   sync.Mutex
	rows []models.Division
}

func newFakeDivisionRepo(divisions ...models.Division) *fakeDivisionRepo {
	return &fakeDivisionRepo{rows: divisions}
}

func (r *fakeDivisionRepo) GetByID(_ context.Context, id int) (*models.Division, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.rows {
		if d.ID == id {
			cp := d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("division %d: %w", id, ErrNotFound)
}

func (r *fakeDivisionRepo) List(_ context.Context) ([]models.Division, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Division, len(r.rows))
	copy(out, r.rows)
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

type fakeTeamRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo { return &fakeTeamRepo{rows: make(map[int]*models.Team)} }

func (r *fakeTeamRepo) add(name string, divisionID int, synthetic bool) *models.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t := &models.Team{ID: r.nextID, Name: name, DivisionID: divisionID, Synthetic: synthetic}
	r.rows[t.ID] = t
	return t
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("team %d: %w", id, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTeamRepo) ListByDivision(_ context.Context, divisionID int) ([]models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Team
	for _, t := range r.rows {
		if t.DivisionID == divisionID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) CountByDivision(_ context.Context, divisionID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.rows {
		if t.DivisionID == divisionID {
			count++
		}
	}
	return count, nil
}

func (r *fakeTeamRepo) CreateSynthetic(_ context.Context, name string, divisionID int) (*models.Team, error) {
	t := r.add(name, divisionID, true)
	cp := *t
	return &cp, nil
}

func (r *fakeTeamRepo) UpdateDivision(_ context.Context, teamID, divisionID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[teamID]
	if !ok {
		return fmt.Errorf("team %d: %w", teamID, ErrNotFound)
	}
	t.DivisionID = divisionID
	return nil
}

type fakeStandingRepo struct {
	mu     sync.Mutex
	tables map[int][]models.Standing // keyed by divisionID
}

func newFakeStandingRepo() *fakeStandingRepo {
	return &fakeStandingRepo{tables: make(map[int][]models.Standing)}
}

func (r *fakeStandingRepo) set(divisionID int, table []models.Standing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[divisionID] = table
}

func (r *fakeStandingRepo) ListByDivision(_ context.Context, _, divisionID int) ([]models.Standing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Standing, len(r.tables[divisionID]))
	copy(out, r.tables[divisionID])
	return out, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	started []int
	fail    error
}

func (g *fakeGateway) StartMatch(_ context.Context, matchID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	g.started = append(g.started, matchID)
	return nil
}

func (g *fakeGateway) startedIDs() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int, len(g.started))
	copy(out, g.started)
	return out
}

type ledgerCall struct {
	TeamID  int
	Credits int
	Gems    int
}

type fakeLedger struct {
	mu       sync.Mutex
	calls    []ledgerCall
	failTeam int // non-zero: next GrantReward for this team fails once
	failErr  error
}

func (l *fakeLedger) GrantReward(_ context.Context, teamID, credits, gems int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failTeam != 0 && teamID == l.failTeam {
		l.failTeam = 0
		return l.failErr
	}
	l.calls = append(l.calls, ledgerCall{TeamID: teamID, Credits: credits, Gems: gems})
	return nil
}

func (l *fakeLedger) grants() []ledgerCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ledgerCall, len(l.calls))
	copy(out, l.calls)
	return out
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads map[string][]byte
	fail    error
}

func newFakeUploader() *fakeUploader { return &fakeUploader{uploads: make(map[string][]byte)} }

func (u *fakeUploader) Upload(_ context.Context, key, _ string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail != nil {
		return nil, u.fail
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.uploads[key] = body
	return &storage.UploadResult{Key: key, Location: "memory://" + key}, nil
}

func (u *fakeUploader) GetPublicURL(key string) string { return "memory://" + key }
