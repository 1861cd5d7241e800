package services

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pitchside/season-engine/chrono"
	"github.com/pitchside/season-engine/repositories"
)

// CatchupService is the periodic sweep that repairs anything a missed timer
// or a crash left behind. Every step re-derives what should have happened
// from persisted state and applies it through the same conditional
// operations the live path uses, so a sweep racing the live path is safe.
type CatchupService struct {
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	bracket        BracketService
	gateway        MatchGateway
	clock          *chrono.Clock
	logger         *slog.Logger
}

func NewCatchupService(
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	bracket BracketService,
	gateway MatchGateway,
	clock *chrono.Clock,
	logger *slog.Logger,
) *CatchupService {
	return &CatchupService{
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		bracket:        bracket,
		gateway:        gateway,
		clock:          clock,
		logger:         logger,
	}
}

// Run performs one full sweep. A failing step is logged and the sweep moves
// on; the joined error is returned for visibility but never interrupts the
// remaining steps.
func (s *CatchupService) Run(ctx context.Context) error {
	var errs []error
	if err := s.startOverdueMatches(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.closeExpiredRegistrations(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.startExpiredCountdowns(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.advanceStalledTournaments(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// startOverdueMatches flips every scheduled match past its kickoff to
// in_progress and notifies the gateway once per transition this sweep won.
func (s *CatchupService) startOverdueMatches(ctx context.Context) error {
	ids, err := s.matchRepo.StartScheduledBefore(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.gateway.StartMatch(ctx, id); err != nil {
			s.logger.Error("gateway start failed during sweep",
				slog.Int("match_id", id),
				slog.Any("error", err),
			)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("started overdue matches", slog.Int("count", len(ids)))
	}
	return nil
}

// closeExpiredRegistrations pushes registrations past their fill deadline
// into the countdown path; the bracket engine tops them up with synthetic
// entries as needed.
func (s *CatchupService) closeExpiredRegistrations(ctx context.Context) error {
	tournaments, err := s.tournamentRepo.ListFillExpired(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range tournaments {
		if err := s.bracket.OnTournamentFull(ctx, t.ID); err != nil {
			s.logger.Error("failed to close expired registration",
				slog.Int("tournament_id", t.ID),
				slog.Any("error", err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// startExpiredCountdowns starts round 1 for tournaments whose countdown ran
// out without the deferred start firing. That happens when the process dies
// during the countdown window: the timer lives only in memory, the persisted
// deadline does not.
func (s *CatchupService) startExpiredCountdowns(ctx context.Context) error {
	tournaments, err := s.tournamentRepo.ListCountdownExpired(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range tournaments {
		if err := s.bracket.StartFirstRound(ctx, t.ID); err != nil {
			s.logger.Error("failed to start expired countdown",
				slog.Int("tournament_id", t.ID),
				slog.Any("error", err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// advanceStalledTournaments finds in-progress brackets whose current round is
// fully completed but whose next round never materialized, and re-runs the
// advance for each. Tournaments are independent, so they advance in parallel.
func (s *CatchupService) advanceStalledTournaments(ctx context.Context) error {
	tournaments, err := s.tournamentRepo.ListAdvanceCandidates(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tournaments {
		t := t
		g.Go(func() error {
			if err := s.bracket.AdvanceRound(ctx, t.ID); err != nil {
				s.logger.Error("stalled tournament advance failed",
					slog.Int("tournament_id", t.ID),
					slog.Any("error", err),
				)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
