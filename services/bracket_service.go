package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/season-engine/brackets"
	"github.com/pitchside/season-engine/chrono"
	"github.com/pitchside/season-engine/models"
	"github.com/pitchside/season-engine/repositories"
	"github.com/pitchside/season-engine/scheduler"
)

const (
	// countdownDelay separates a full registration from the first kickoff.
	countdownDelay = 10 * time.Minute
	// roundStartBuffer separates round creation from its kickoff.
	roundStartBuffer = 2 * time.Minute
)

// BracketService is the single authority over bracket state: round creation,
// advancement and settlement all live here. Recovery tools and schedulers
// delegate to it instead of reimplementing any part of the transition logic.
type BracketService interface {
	// RegisterEntry adds a team to an open registration and starts the
	// countdown when the entry fills the bracket.
	RegisterEntry(ctx context.Context, tournamentID, teamID int) (*models.TournamentEntry, error)
	// OnTournamentFull moves a filled (or fill-expired) registration into
	// countdown. Safe to call repeatedly and from concurrent callers.
	OnTournamentFull(ctx context.Context, tournamentID int) error
	// StartFirstRound creates round 1 for a tournament whose countdown ran
	// out. The countdown timer and the recovery sweep both land here; any
	// state other than an expired countdown is a no-op.
	StartFirstRound(ctx context.Context, tournamentID int) error
	// OnMatchCompleted records a result and re-evaluates round advancement.
	// Idempotent: a duplicate notification has no further effect.
	OnMatchCompleted(ctx context.Context, matchID, homeScore, awayScore int) error
	// AdvanceRound creates the next round iff the current one is fully
	// completed and the next batch does not exist yet; on the final round it
	// settles the tournament instead.
	AdvanceRound(ctx context.Context, tournamentID int) error
}

type bracketService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	entryRepo      repositories.EntryRepository
	grantRepo      repositories.RewardGrantRepository
	teamRepo       repositories.TeamRepository
	divisionRepo   repositories.DivisionRepository
	rewards        *RewardTable
	ledger         Ledger
	gateway        MatchGateway
	sched          *scheduler.TriggerScheduler
	clock          *chrono.Clock
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	entryRepo repositories.EntryRepository,
	grantRepo repositories.RewardGrantRepository,
	teamRepo repositories.TeamRepository,
	divisionRepo repositories.DivisionRepository,
	rewards *RewardTable,
	ledger Ledger,
	gateway MatchGateway,
	sched *scheduler.TriggerScheduler,
	clock *chrono.Clock,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		entryRepo:      entryRepo,
		grantRepo:      grantRepo,
		teamRepo:       teamRepo,
		divisionRepo:   divisionRepo,
		rewards:        rewards,
		ledger:         ledger,
		gateway:        gateway,
		sched:          sched,
		clock:          clock,
		hub:            hub,
		logger:         logger,
	}
}

func startKey(tournamentID int) string {
	return fmt.Sprintf("tournament-%d-start", tournamentID)
}

func (s *bracketService) RegisterEntry(ctx context.Context, tournamentID, teamID int) (*models.TournamentEntry, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusRegistrationOpen {
		return nil, ErrRegistrationNotOpen
	}

	// The insert carries the capacity guard, so two registrations racing for
	// the last slot cannot both land.
	entry, err := s.entryRepo.CreateNextSeed(ctx, tournamentID, teamID, t.Capacity)
	if errors.Is(err, repositories.ErrTournamentCapacity) {
		return nil, ErrTournamentFull
	}
	if err != nil {
		return nil, err
	}

	count, err := s.entryRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if count >= t.Capacity {
		if err := s.OnTournamentFull(ctx, tournamentID); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func (s *bracketService) OnTournamentFull(ctx context.Context, tournamentID int) error {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != models.StatusRegistrationOpen {
		return nil
	}

	count, err := s.entryRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if count < t.Capacity {
		if s.clock.Now().Before(t.FillDeadline) {
			return nil
		}
		if err := s.fillWithSynthetic(ctx, t, count); err != nil {
			return err
		}
	}

	// Persisting when the countdown ends lets the recovery sweep re-derive
	// the round-1 start if this process dies with the timer in memory.
	endsAt := s.clock.Now().Add(countdownDelay)
	err = s.tournamentRepo.BeginCountdown(ctx, t.ID, endsAt)
	if errors.Is(err, repositories.ErrTournamentStatusConflict) {
		return nil // another caller already moved it
	}
	if err != nil {
		return err
	}

	s.logger.Info("tournament countdown started",
		slog.Int("tournament_id", t.ID),
		slog.Time("ends_at", endsAt),
	)
	s.sched.After(startKey(t.ID), countdownDelay, func() error {
		return s.StartFirstRound(context.Background(), t.ID)
	})
	return nil
}

func (s *bracketService) fillWithSynthetic(ctx context.Context, t *models.Tournament, count int) error {
	seed, err := s.entryRepo.MaxSeed(ctx, t.ID)
	if err != nil {
		return err
	}
	for i := count; i < t.Capacity; i++ {
		name := fmt.Sprintf("AI United %s", uuid.NewString()[:8])
		team, err := s.teamRepo.CreateSynthetic(ctx, name, t.DivisionID)
		if err != nil {
			return fmt.Errorf("create synthetic team for tournament %d: %w", t.ID, err)
		}
		seed++
		entry := &models.TournamentEntry{TournamentID: t.ID, TeamID: team.ID, Seed: seed}
		if err := s.entryRepo.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *bracketService) StartFirstRound(ctx context.Context, tournamentID int) error {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != models.StatusCountdown {
		return nil // reset or completed while the timer was pending
	}
	if t.CountdownEndsAt != nil && s.clock.Now().Before(*t.CountdownEndsAt) {
		return nil // the countdown is still running; the timer will fire
	}

	entries, err := s.entryRepo.ListBySeed(ctx, t.ID)
	if err != nil {
		return err
	}
	pairs, err := brackets.PairSeeds(entries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoundData, err)
	}

	matches := s.buildRoundMatches(t, 1, pairs, s.clock.Now())
	err = s.matchRepo.CreateRoundBatch(ctx, t.ID, 1, matches)
	if err != nil && !errors.Is(err, repositories.ErrRoundAlreadyExists) {
		return err
	}

	err = s.tournamentRepo.UpdateStatusIf(ctx, t.ID, models.StatusCountdown, models.StatusInProgress)
	if err != nil && !errors.Is(err, repositories.ErrTournamentStatusConflict) {
		return err
	}
	if err := s.tournamentRepo.SetCurrentRound(ctx, t.ID, 1); err != nil {
		return err
	}

	s.broadcastRound(ctx, t.ID, 1)
	return s.startPendingMatches(ctx, t.ID)
}

func (s *bracketService) OnMatchCompleted(ctx context.Context, matchID, homeScore, awayScore int) error {
	if homeScore < 0 || awayScore < 0 {
		return ErrInvalidScore
	}

	updated, err := s.matchRepo.CompleteIf(ctx, matchID, homeScore, awayScore)
	if err != nil {
		return err
	}
	m, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if updated {
		s.broadcastMatch(m)
	}

	if !m.IsBracket() || *m.Round == models.ConsolationRound {
		return nil
	}
	// Always re-evaluate, even on a duplicate notification: the check is
	// idempotent and a re-run repairs an advance that failed mid-way.
	return s.AdvanceRound(ctx, *m.TournamentID)
}

func (s *bracketService) AdvanceRound(ctx context.Context, tournamentID int) error {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != models.StatusInProgress || t.CurrentRound < 1 {
		return nil
	}
	round := t.CurrentRound

	matches, err := s.matchRepo.ListByTournamentRound(ctx, t.ID, round)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}
	for _, m := range matches {
		if m.Status != models.MatchCompleted {
			return nil // round still running; a later notification retries
		}
	}

	entries, err := s.entryRepo.ListBySeed(ctx, t.ID)
	if err != nil {
		return err
	}
	entryByTeam := make(map[int]models.TournamentEntry, len(entries))
	for _, e := range entries {
		entryByTeam[e.TeamID] = e
	}

	// Matches come back in slot order, so winners stay in slot order too.
	winners := make([]models.TournamentEntry, 0, len(matches))
	losers := make([]models.TournamentEntry, 0, len(matches))
	for _, m := range matches {
		winnerID, loserID, err := brackets.WinnerTeamID(m)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRoundData, err)
		}
		winner, ok := entryByTeam[winnerID]
		if !ok {
			return fmt.Errorf("%w: team %d has no entry in tournament %d", ErrInvalidRoundData, winnerID, t.ID)
		}
		loser, ok := entryByTeam[loserID]
		if !ok {
			return fmt.Errorf("%w: team %d has no entry in tournament %d", ErrInvalidRoundData, loserID, t.ID)
		}
		winners = append(winners, winner)
		losers = append(losers, loser)
	}

	totalRounds, err := brackets.NumRounds(t.Capacity)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoundData, err)
	}

	if round == totalRounds {
		return s.settle(ctx, t, totalRounds)
	}

	if t.Kind.HasConsolation() && round == totalRounds-1 {
		if err := s.createConsolation(ctx, t, losers); err != nil {
			return err
		}
	}

	pairs, err := brackets.PairWinners(winners)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoundData, err)
	}

	next := round + 1
	kickoff := s.clock.Now().Add(roundStartBuffer)
	batch := s.buildRoundMatches(t, next, pairs, kickoff)

	err = s.matchRepo.CreateRoundBatch(ctx, t.ID, next, batch)
	if errors.Is(err, repositories.ErrRoundAlreadyExists) {
		// Lost the race (or repairing after a crash between batch creation
		// and the bookkeeping below). Converge on the same end state.
		return s.tournamentRepo.SetCurrentRound(ctx, t.ID, next)
	}
	if err != nil {
		return err
	}

	if err := s.tournamentRepo.SetCurrentRound(ctx, t.ID, next); err != nil {
		return err
	}
	s.logger.Info("round created",
		slog.Int("tournament_id", t.ID),
		slog.Int("round", next),
		slog.Int("matches", len(batch)),
	)
	s.broadcastRound(ctx, t.ID, next)

	s.sched.After(startKey(t.ID), roundStartBuffer, func() error {
		return s.startPendingMatches(context.Background(), t.ID)
	})
	return nil
}

// createConsolation pairs the two semifinal losers. The batch guard makes it
// a no-op when the match already exists.
func (s *bracketService) createConsolation(ctx context.Context, t *models.Tournament, losers []models.TournamentEntry) error {
	if len(losers) != 2 {
		return fmt.Errorf("%w: expected 2 semifinal losers, got %d", ErrInvalidRoundData, len(losers))
	}
	pair, err := brackets.PairWinners(losers)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoundData, err)
	}

	kickoff := s.clock.Now().Add(roundStartBuffer)
	batch := s.buildRoundMatches(t, models.ConsolationRound, pair, kickoff)
	err = s.matchRepo.CreateRoundBatch(ctx, t.ID, models.ConsolationRound, batch)
	if err != nil && !errors.Is(err, repositories.ErrRoundAlreadyExists) {
		return err
	}
	return nil
}

// startPendingMatches conditionally starts every due scheduled match of the
// tournament and notifies the gateway for each one this caller transitioned.
func (s *bracketService) startPendingMatches(ctx context.Context, tournamentID int) error {
	matches, err := s.matchRepo.ListScheduledByTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, m := range matches {
		if m.KickoffAt.After(now) {
			continue
		}
		started, err := s.matchRepo.StartIfScheduled(ctx, m.ID)
		if err != nil {
			return err
		}
		if !started {
			continue
		}
		if err := s.gateway.StartMatch(ctx, m.ID); err != nil {
			s.logger.Error("gateway start failed",
				slog.Int("match_id", m.ID),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

// settle assigns bucketed final ranks and issues one reward grant per entry,
// then closes the tournament. Completion is the irrevocable gate: once the
// status flips to completed, settlement can never run again.
func (s *bracketService) settle(ctx context.Context, t *models.Tournament, totalRounds int) error {
	entries, err := s.entryRepo.ListBySeed(ctx, t.ID)
	if err != nil {
		return err
	}
	entryByTeam := make(map[int]models.TournamentEntry, len(entries))
	for _, e := range entries {
		entryByTeam[e.TeamID] = e
	}

	champion := 0
	eliminatedIn := make(map[int]int, len(entries))
	for round := 1; round <= totalRounds; round++ {
		matches, err := s.matchRepo.ListByTournamentRound(ctx, t.ID, round)
		if err != nil {
			return err
		}
		for _, m := range matches {
			winnerID, loserID, err := brackets.WinnerTeamID(m)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidRoundData, err)
			}
			eliminatedIn[loserID] = round
			if round == totalRounds {
				champion = winnerID
			}
		}
	}
	if champion == 0 {
		return fmt.Errorf("%w: no final winner for tournament %d", ErrInvalidRoundData, t.ID)
	}

	division, err := s.divisionRepo.GetByID(ctx, t.DivisionID)
	if err != nil {
		return err
	}
	granted, err := s.grantRepo.ListGrantedTeamIDs(ctx, t.ID)
	if err != nil {
		return err
	}

	for _, e := range entries {
		bucket := 1
		if e.TeamID != champion {
			round, ok := eliminatedIn[e.TeamID]
			if !ok {
				return fmt.Errorf("%w: entry %d was never eliminated nor champion", ErrInvalidRoundData, e.ID)
			}
			bucket = brackets.LoserBucket(round, totalRounds)
		}

		// Set exactly once; a retry after partial settlement skips it.
		if _, err := s.entryRepo.SetFinalRankIfUnset(ctx, e.ID, bucket); err != nil {
			return err
		}

		if granted[e.TeamID] {
			continue
		}
		reward, err := s.rewards.Lookup(t.Kind, division.Tier, bucket)
		if err != nil {
			return err
		}
		grant := &models.RewardGrant{
			TournamentID: t.ID,
			TeamID:       e.TeamID,
			Credits:      reward.Credits,
			Gems:         reward.Gems,
		}
		inserted, err := s.grantRepo.InsertIfAbsent(ctx, grant)
		if err != nil {
			return err
		}
		if !inserted {
			continue // another settler issued it in the meantime
		}
		if err := s.ledger.GrantReward(ctx, e.TeamID, reward.Credits, reward.Gems); err != nil {
			// Release the reservation so the retry issues this grant again.
			if delErr := s.grantRepo.Delete(ctx, t.ID, e.TeamID); delErr != nil {
				s.logger.Error("failed to release reward reservation",
					slog.Int("tournament_id", t.ID),
					slog.Int("team_id", e.TeamID),
					slog.Any("error", delErr),
				)
			}
			return fmt.Errorf("%w: team %d: %w", ErrRewardGrantFailed, e.TeamID, err)
		}
	}

	err = s.tournamentRepo.UpdateStatusIf(ctx, t.ID, models.StatusInProgress, models.StatusCompleted)
	if errors.Is(err, repositories.ErrTournamentStatusConflict) {
		return nil // already settled by a concurrent caller
	}
	if err != nil {
		return err
	}

	s.sched.Cancel(startKey(t.ID))
	s.logger.Info("tournament settled",
		slog.Int("tournament_id", t.ID),
		slog.Int("champion_team_id", champion),
	)
	s.broadcast(t.ID, brackets.HubMessage{
		Type:    brackets.EventTournamentCompleted,
		Payload: map[string]int{"tournament_id": t.ID, "champion_team_id": champion},
	})
	return nil
}

func (s *bracketService) buildRoundMatches(t *models.Tournament, round int, pairs []brackets.Pair, kickoff time.Time) []*models.Match {
	matches := make([]*models.Match, 0, len(pairs))
	for _, p := range pairs {
		r := round
		matches = append(matches, &models.Match{
			UID:          uuid.NewString(),
			SeasonID:     t.SeasonID,
			DivisionID:   t.DivisionID,
			TournamentID: &t.ID,
			Round:        &r,
			HomeTeamID:   p.Home.TeamID,
			AwayTeamID:   p.Away.TeamID,
			HomeSeed:     p.Home.Seed,
			AwaySeed:     p.Away.Seed,
			Status:       models.MatchScheduled,
			KickoffAt:    kickoff,
		})
	}
	return matches
}

func (s *bracketService) broadcastRound(ctx context.Context, tournamentID, round int) {
	if s.hub == nil {
		return
	}
	matches, err := s.matchRepo.ListByTournamentRound(ctx, tournamentID, round)
	if err != nil {
		return
	}
	s.broadcast(tournamentID, brackets.HubMessage{
		Type:    brackets.EventRoundCreated,
		Payload: map[string]interface{}{"round": round, "matches": matches},
	})
}

func (s *bracketService) broadcastMatch(m *models.Match) {
	if s.hub == nil || m.TournamentID == nil {
		return
	}
	s.broadcast(*m.TournamentID, brackets.HubMessage{
		Type:    brackets.EventMatchUpdated,
		Payload: m,
	})
}

func (s *bracketService) broadcast(tournamentID int, msg brackets.HubMessage) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(brackets.TournamentRoom(tournamentID), msg)
}
