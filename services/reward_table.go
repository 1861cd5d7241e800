package services

import (
	"fmt"

	"github.com/pitchside/season-engine/models"
)

// RewardKey addresses one payout bucket.
type RewardKey struct {
	Kind   models.TournamentKind
	Tier   int
	Bucket int
}

// RewardTable maps (kind, division tier, rank bucket) to a payout. Keys are
// validated when the table is built so a bad configuration fails at startup,
// not in the middle of a settlement.
type RewardTable struct {
	rewards map[RewardKey]models.Reward
}

func NewRewardTable(rewards map[RewardKey]models.Reward) (*RewardTable, error) {
	table := make(map[RewardKey]models.Reward, len(rewards))
	for key, reward := range rewards {
		if key.Kind != models.KindMidSeasonCup && key.Kind != models.KindPlayoff {
			return nil, fmt.Errorf("reward table: unknown tournament kind %q", key.Kind)
		}
		if key.Tier < 1 {
			return nil, fmt.Errorf("reward table: invalid division tier %d", key.Tier)
		}
		if !validRankBucket(key.Bucket) {
			return nil, fmt.Errorf("reward table: invalid rank bucket %d", key.Bucket)
		}
		if reward.Credits < 0 || reward.Gems < 0 {
			return nil, fmt.Errorf("reward table: negative payout for %+v", key)
		}
		table[key] = reward
	}
	return &RewardTable{rewards: table}, nil
}

// Buckets follow elimination structure: 1, 2, then 2^k+1 for losers of
// earlier rounds (3, 5, 9, ...).
func validRankBucket(bucket int) bool {
	if bucket == 1 || bucket == 2 {
		return true
	}
	for k := uint(1); k < 8; k++ {
		if bucket == 1<<k+1 {
			return true
		}
	}
	return false
}

func (t *RewardTable) Lookup(kind models.TournamentKind, tier, bucket int) (models.Reward, error) {
	reward, ok := t.rewards[RewardKey{Kind: kind, Tier: tier, Bucket: bucket}]
	if !ok {
		return models.Reward{}, fmt.Errorf("%w: kind=%s tier=%d bucket=%d",
			ErrUnknownRewardKey, kind, tier, bucket)
	}
	return reward, nil
}

// DefaultRewardTable covers both tournament kinds for division tiers 1-4.
// Lower tiers pay half of the tier above, rounded down to the nearest 5.
func DefaultRewardTable() (*RewardTable, error) {
	base := map[models.TournamentKind]map[int]models.Reward{
		models.KindPlayoff: {
			1: {Credits: 2000, Gems: 120},
			2: {Credits: 1000, Gems: 60},
			3: {Credits: 500, Gems: 25},
			5: {Credits: 200, Gems: 10},
		},
		models.KindMidSeasonCup: {
			1: {Credits: 800, Gems: 40},
			2: {Credits: 400, Gems: 20},
			3: {Credits: 150, Gems: 10},
			5: {Credits: 50, Gems: 5},
		},
	}

	rewards := make(map[RewardKey]models.Reward)
	for kind, buckets := range base {
		for bucket, reward := range buckets {
			for tier := 1; tier <= 4; tier++ {
				scaled := models.Reward{
					Credits: reward.Credits / (1 << uint(tier-1)) / 5 * 5,
					Gems:    reward.Gems / (1 << uint(tier-1)),
				}
				rewards[RewardKey{Kind: kind, Tier: tier, Bucket: bucket}] = scaled
			}
		}
	}
	return NewRewardTable(rewards)
}
