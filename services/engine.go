package services

import (
	"context"
	"log/slog"

	"github.com/pitchside/season-engine/scheduler"
)

// Daily trigger times, civil hours in the engine timezone.
const (
	dailyActionHour   = 15
	rolloverHour      = 3
	keyDailyActions   = "season-daily-actions"
	keySeasonRollover = "season-rollover"
)

// Engine ties the calendar, the bracket state machine and the recovery sweep
// together behind one surface. Hosts arm it once with Start, feed it
// external events and run Tick on their own cadence.
type Engine struct {
	seasons *SeasonService
	bracket BracketService
	catchup *CatchupService
	sched   *scheduler.TriggerScheduler
	logger  *slog.Logger
}

func NewEngine(
	seasons *SeasonService,
	bracket BracketService,
	catchup *CatchupService,
	sched *scheduler.TriggerScheduler,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		seasons: seasons,
		bracket: bracket,
		catchup: catchup,
		sched:   sched,
		logger:  logger,
	}
}

// Start arms the two daily triggers. It does not block.
func (e *Engine) Start() {
	e.sched.Schedule(keyDailyActions, dailyActionHour, 0, func() error {
		return e.seasons.RunDailyActions(context.Background())
	})
	e.sched.Schedule(keySeasonRollover, rolloverHour, 0, func() error {
		return e.seasons.RunRolloverAction(context.Background())
	})
	e.logger.Info("season engine started")
}

// Tick runs one catch-up sweep. Hosts call it on a fixed interval.
func (e *Engine) Tick(ctx context.Context) error {
	return e.catchup.Run(ctx)
}

// OnTournamentFull forwards a filled-registration event to the bracket engine.
func (e *Engine) OnTournamentFull(ctx context.Context, tournamentID int) error {
	return e.bracket.OnTournamentFull(ctx, tournamentID)
}

// AdvanceRound forwards a manual advance request to the bracket engine.
func (e *Engine) AdvanceRound(ctx context.Context, tournamentID int) error {
	return e.bracket.AdvanceRound(ctx, tournamentID)
}

// OnMatchCompleted forwards a match result to the bracket engine.
func (e *Engine) OnMatchCompleted(ctx context.Context, matchID, homeScore, awayScore int) error {
	return e.bracket.OnMatchCompleted(ctx, matchID, homeScore, awayScore)
}

// Stop cancels every armed timer. In-flight work is not interrupted.
func (e *Engine) Stop() {
	e.sched.Stop()
	e.logger.Info("season engine stopped")
}
