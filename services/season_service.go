package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/season-engine/brackets"
	"github.com/pitchside/season-engine/chrono"
	"github.com/pitchside/season-engine/models"
	"github.com/pitchside/season-engine/repositories"
	"github.com/pitchside/season-engine/storage"
)

// Trigger kinds accepted by RunTrigger. The daily dispatcher maps calendar
// days onto the same actions, so a manual trigger and a timed one are
// indistinguishable to the rest of the system.
const (
	TriggerFinalizeGroupings = "finalize_groupings"
	TriggerOpenMidSeasonCup  = "open_mid_season_cup"
	TriggerFillLateGroups    = "fill_late_groups"
	TriggerGeneratePlayoffs  = "generate_playoff_brackets"
	TriggerSeasonRollover    = "season_rollover"
)

const (
	// cupCapacity is the bracket size of the mid-season cup and the playoffs.
	cupCapacity = 8
	// cupFillWindow bounds how long a cup registration may stay undersubscribed
	// before synthetic teams top it up.
	cupFillWindow = 2 * time.Hour
	// regularDays is the league portion of the cycle; fixtures never land
	// past this day.
	regularDays = 14
	// leagueLegs: every pairing plays home and away.
	leagueLegs = 2
	// leagueKickoffHour is the civil hour league fixtures kick off at.
	leagueKickoffHour = 18
	// exchangeCount teams swap between adjacent tiers at rollover.
	exchangeCount = 2
)

// SeasonStatus is the live calendar position plus the persisted season row,
// served by the status endpoint.
type SeasonStatus struct {
	Season *models.Season    `json:"season"`
	Info   chrono.SeasonInfo `json:"info"`
}

// standingsArchive is the JSON document uploaded at rollover.
type standingsArchive struct {
	SeasonNumber int                        `json:"season_number"`
	GeneratedAt  time.Time                  `json:"generated_at"`
	Divisions    []divisionStandingsArchive `json:"divisions"`
}

type divisionStandingsArchive struct {
	DivisionID int               `json:"division_id"`
	Name       string            `json:"name"`
	Tier       int               `json:"tier"`
	Table      []models.Standing `json:"table"`
}

// SeasonService drives the repeating season calendar: it owns the five
// scheduled actions and the rollover. Every action is precondition-guarded
// so a recovered or manually repeated trigger converges instead of
// duplicating work.
type SeasonService struct {
	seasonRepo     repositories.SeasonRepository
	divisionRepo   repositories.DivisionRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	standingRepo   repositories.StandingRepository
	bracket        BracketService
	archive        storage.FileUploader
	clock          *chrono.Clock
	logger         *slog.Logger
}

func NewSeasonService(
	seasonRepo repositories.SeasonRepository,
	divisionRepo repositories.DivisionRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	standingRepo repositories.StandingRepository,
	bracket BracketService,
	archive storage.FileUploader,
	clock *chrono.Clock,
	logger *slog.Logger,
) *SeasonService {
	return &SeasonService{
		seasonRepo:     seasonRepo,
		divisionRepo:   divisionRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		standingRepo:   standingRepo,
		bracket:        bracket,
		archive:        archive,
		clock:          clock,
		logger:         logger,
	}
}

// Status returns the active season and its derived calendar position.
func (s *SeasonService) Status(ctx context.Context) (*SeasonStatus, error) {
	season, err := s.seasonRepo.Current(ctx)
	if err != nil {
		return nil, err
	}
	info := chrono.Info(season.StartDate, s.clock.Now())
	info.SeasonNumber = season.Number
	return &SeasonStatus{Season: season, Info: info}, nil
}

// RunDailyActions is the target of the daily 15:00 trigger. It dispatches on
// the current cycle day; on days without an action it does nothing.
func (s *SeasonService) RunDailyActions(ctx context.Context) error {
	season, err := s.seasonRepo.Current(ctx)
	if err != nil {
		return err
	}
	info := chrono.Info(season.StartDate, s.clock.Now())

	switch info.DayInCycle {
	case 1:
		return s.FinalizeGroupings(ctx)
	case 7:
		return s.OpenMidSeasonCup(ctx)
	case 9:
		return s.FillLateGroups(ctx)
	case 15:
		return s.GeneratePlayoffBrackets(ctx)
	}
	return nil
}

// RunRolloverAction is the target of the daily 03:00 trigger. The off-season
// gate lives inside SeasonRollover, shared with the manual trigger.
func (s *SeasonService) RunRolloverAction(ctx context.Context) error {
	return s.SeasonRollover(ctx)
}

// RunTrigger executes one named action out of schedule, for operators.
func (s *SeasonService) RunTrigger(ctx context.Context, kind string) error {
	switch kind {
	case TriggerFinalizeGroupings:
		return s.FinalizeGroupings(ctx)
	case TriggerOpenMidSeasonCup:
		return s.OpenMidSeasonCup(ctx)
	case TriggerFillLateGroups:
		return s.FillLateGroups(ctx)
	case TriggerGeneratePlayoffs:
		return s.GeneratePlayoffBrackets(ctx)
	case TriggerSeasonRollover:
		return s.SeasonRollover(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTriggerKind, kind)
	}
}

// FinalizeGroupings tops every division up to capacity with synthetic teams
// and creates the full double round-robin schedule. Divisions that already
// hold a schedule for the season are skipped.
func (s *SeasonService) FinalizeGroupings(ctx context.Context) error {
	season, err := s.seasonRepo.Current(ctx)
	if err != nil {
		return err
	}
	divisions, err := s.divisionRepo.List(ctx)
	if err != nil {
		return err
	}

	for _, d := range divisions {
		if err := s.topUpDivision(ctx, d); err != nil {
			return err
		}
		if err := s.createLeagueSchedule(ctx, season, d, 1, regularDays, leagueLegs); err != nil {
			return err
		}
	}
	return nil
}

// OpenMidSeasonCup opens one cup registration per division. A division that
// already has a cup this season keeps it.
func (s *SeasonService) OpenMidSeasonCup(ctx context.Context) error {
	season, err := s.seasonRepo.Current(ctx)
	if err != nil {
		return err
	}
	divisions, err := s.divisionRepo.List(ctx)
	if err != nil {
		return err
	}

	for _, d := range divisions {
		exists, err := s.tournamentRepo.ExistsForSeason(ctx, season.ID, d.ID, models.KindMidSeasonCup)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		t := &models.Tournament{
			Kind:         models.KindMidSeasonCup,
			SeasonID:     season.ID,
			DivisionID:   d.ID,
			Status:       models.StatusRegistrationOpen,
			Capacity:     cupCapacity,
			FillDeadline: s.clock.Now().Add(cupFillWindow),
		}
		if err := s.tournamentRepo.Create(ctx, t); err != nil {
			return err
		}
		s.logger.Info("mid-season cup registration opened",
			slog.Int("tournament_id", t.ID),
			slog.Int("division_id", d.ID),
		)
	}
	return nil
}

// FillLateGroups gives divisions that still lack a schedule a shortened one
// covering the remaining regular days, single leg. It exists for divisions
// spun up after the season started.
func (s *SeasonService) FillLateGroups(ctx context.Context) error {
	season, err := s.seasonRepo.Current(ctx)
	if err != nil {
		return err
	}
	info := chrono.Info(season.StartDate, s.clock.Now())
	if info.DayInCycle > regularDays {
		return nil
	}

	divisions, err := s.divisionRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, d := range divisions {
		if err := s.topUpDivision(ctx, d); err != nil {
			return err
		}
		if err := s.createLeagueSchedule(ctx, season, d, info.DayInCycle, regularDays, 1); err != nil {
			return err
		}
	}
	return nil
}

// GeneratePlayoffBrackets seeds one playoff per division from the league
// table and hands it straight to the bracket engine: the field is known, so
// registration closes immediately.
func (s *SeasonService) GeneratePlayoffBrackets(ctx context.Context) error {
	season, err := s.seasonRepo.Current(ctx)
	if err != nil {
		return err
	}
	divisions, err := s.divisionRepo.List(ctx)
	if err != nil {
		return err
	}

	for _, d := range divisions {
		exists, err := s.tournamentRepo.ExistsForSeason(ctx, season.ID, d.ID, models.KindPlayoff)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		standings, err := s.standingRepo.ListByDivision(ctx, season.ID, d.ID)
		if err != nil {
			return err
		}
		if len(standings) < cupCapacity {
			return fmt.Errorf("division %d has %d teams in the table, need %d for playoffs", d.ID, len(standings), cupCapacity)
		}

		t := &models.Tournament{
			Kind:         models.KindPlayoff,
			SeasonID:     season.ID,
			DivisionID:   d.ID,
			Status:       models.StatusRegistrationOpen,
			Capacity:     cupCapacity,
			FillDeadline: s.clock.Now(),
		}
		if err := s.tournamentRepo.Create(ctx, t); err != nil {
			return err
		}
		for i, st := range standings[:cupCapacity] {
			entry := &models.TournamentEntry{TournamentID: t.ID, TeamID: st.TeamID, Seed: i + 1}
			if err := s.entryRepo.Create(ctx, entry); err != nil && !errors.Is(err, repositories.ErrEntryConflict) {
				return err
			}
		}
		if err := s.bracket.OnTournamentFull(ctx, t.ID); err != nil {
			return err
		}
		s.logger.Info("playoff bracket generated",
			slog.Int("tournament_id", t.ID),
			slog.Int("division_id", d.ID),
		)
	}
	return nil
}

// SeasonRollover archives final standings, applies promotion and relegation
// between adjacent tiers and opens the next season. The calendar is the
// idempotency gate: the rollover only acts once the current season reaches
// its off-season day, and afterwards the current season is the freshly
// opened one, which is not due for another full cycle. A manual trigger on
// any other day is a no-op, and a rollover that missed its slot still runs
// on the next attempt.
func (s *SeasonService) SeasonRollover(ctx context.Context) error {
	season, err := s.seasonRepo.Current(ctx)
	if err != nil {
		return err
	}
	if s.clock.Now().Before(season.StartDate.AddDate(0, 0, chrono.CycleDays-1)) {
		return nil // the off-season day has not arrived
	}
	next := season.Number + 1

	divisions, err := s.divisionRepo.List(ctx)
	if err != nil {
		return err
	}
	tables := make(map[int][]models.Standing, len(divisions))
	doc := standingsArchive{SeasonNumber: season.Number, GeneratedAt: s.clock.Now()}
	for _, d := range divisions {
		standings, err := s.standingRepo.ListByDivision(ctx, season.ID, d.ID)
		if err != nil {
			return err
		}
		tables[d.ID] = standings
		doc.Divisions = append(doc.Divisions, divisionStandingsArchive{
			DivisionID: d.ID,
			Name:       d.Name,
			Tier:       d.Tier,
			Table:      standings,
		})
	}

	// The archive upload comes first: if it fails the rollover retries
	// whole, because nothing below has happened yet.
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	key := fmt.Sprintf("archives/season-%d/standings.json", season.Number)
	if _, err := s.archive.Upload(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("archive season %d standings: %w", season.Number, err)
	}

	// Divisions come back ordered by tier, best first. Swap the bottom of
	// each tier with the top of the one below it.
	for i := 0; i+1 < len(divisions); i++ {
		upper, lower := divisions[i], divisions[i+1]
		upperTable, lowerTable := tables[upper.ID], tables[lower.ID]
		if len(upperTable) < exchangeCount || len(lowerTable) < exchangeCount {
			continue
		}
		for j := 0; j < exchangeCount; j++ {
			demoted := upperTable[len(upperTable)-1-j].TeamID
			promoted := lowerTable[j].TeamID
			if err := s.teamRepo.UpdateDivision(ctx, demoted, lower.ID); err != nil {
				return err
			}
			if err := s.teamRepo.UpdateDivision(ctx, promoted, upper.ID); err != nil {
				return err
			}
		}
	}

	start := season.StartDate.AddDate(0, 0, chrono.CycleDays)
	if err := s.seasonRepo.Create(ctx, &models.Season{
		Number:    next,
		StartDate: start,
		Status:    models.SeasonActive,
	}); err != nil {
		if errors.Is(err, repositories.ErrSeasonConflict) {
			return nil // concurrent rollover won
		}
		return err
	}
	if err := s.seasonRepo.Archive(ctx, season.ID); err != nil {
		return err
	}

	s.logger.Info("season rolled over",
		slog.Int("closed", season.Number),
		slog.Int("opened", next),
		slog.String("archive_key", key),
	)
	return nil
}

func (s *SeasonService) topUpDivision(ctx context.Context, d models.Division) error {
	count, err := s.teamRepo.CountByDivision(ctx, d.ID)
	if err != nil {
		return err
	}
	for i := count; i < d.Capacity; i++ {
		name := fmt.Sprintf("AI United %s", uuid.NewString()[:8])
		if _, err := s.teamRepo.CreateSynthetic(ctx, name, d.ID); err != nil {
			return fmt.Errorf("top up division %d: %w", d.ID, err)
		}
	}
	return nil
}

// createLeagueSchedule builds fixtures for the division starting at fromDay
// and persists them in one guarded batch. An existing schedule wins.
func (s *SeasonService) createLeagueSchedule(ctx context.Context, season *models.Season, d models.Division, fromDay, lastDay, legs int) error {
	exists, err := s.matchRepo.LeagueScheduleExists(ctx, season.ID, d.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	teams, err := s.teamRepo.ListByDivision(ctx, d.ID)
	if err != nil {
		return err
	}
	teamIDs := make([]int, len(teams))
	for i, t := range teams {
		teamIDs[i] = t.ID
	}

	fixtures, err := brackets.LeagueFixtures(teamIDs, legs, lastDay-fromDay+1)
	if err != nil {
		return fmt.Errorf("division %d fixtures: %w", d.ID, err)
	}

	matches := make([]*models.Match, 0, len(fixtures))
	for _, f := range fixtures {
		day := fromDay + f.MatchDay - 1
		matches = append(matches, &models.Match{
			UID:        uuid.NewString(),
			SeasonID:   season.ID,
			DivisionID: d.ID,
			HomeTeamID: f.HomeTeamID,
			AwayTeamID: f.AwayTeamID,
			Status:     models.MatchScheduled,
			KickoffAt:  s.leagueKickoff(season.StartDate, day),
		})
	}

	err = s.matchRepo.CreateLeagueSchedule(ctx, season.ID, d.ID, matches)
	if errors.Is(err, repositories.ErrScheduleAlreadyExists) {
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("league schedule created",
		slog.Int("division_id", d.ID),
		slog.Int("matches", len(matches)),
		slog.Int("from_day", fromDay),
	)
	return nil
}

// leagueKickoff places a fixture of the given cycle day at the civil kickoff
// hour in the engine timezone.
func (s *SeasonService) leagueKickoff(seasonStart time.Time, day int) time.Time {
	loc := s.clock.Location()
	base := seasonStart.In(loc).AddDate(0, 0, day-1)
	return time.Date(base.Year(), base.Month(), base.Day(), leagueKickoffHour, 0, 0, 0, loc)
}
