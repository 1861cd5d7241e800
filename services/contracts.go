package services

import "context"

// MatchGateway hands a match to the external simulation service. StartMatch
// is fire-and-forget: the result arrives later as a completion notification
// through Engine.OnMatchCompleted.
type MatchGateway interface {
	StartMatch(ctx context.Context, matchID int) error
}

// Ledger credits tournament payouts. Grant failures leave the tournament
// unsettled; the engine retries missing grants on a later tick.
type Ledger interface {
	GrantReward(ctx context.Context, teamID, credits, gems int) error
}
