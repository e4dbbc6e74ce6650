package models

import "math"

// Tier is the discrete reward level derived from lifetime earned points.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// TierDefinition couples a tier with its entry threshold on totalEarned and
// its display benefits. The benefits are opaque display data, not logic.
type TierDefinition struct {
	Tier            Tier     `json:"tier"`
	Threshold       int      `json:"threshold"`
	DiscountPercent int      `json:"discountPercent"`
	Benefits        []string `json:"benefits"`
}

// tierTable is ordered by ascending threshold. A tier is reached once
// totalEarned meets its threshold (inclusive boundary).
var tierTable = []TierDefinition{
	{
		Tier:            TierBronze,
		Threshold:       0,
		DiscountPercent: 0,
		Benefits:        []string{"Earn 1 point per unit spent"},
	},
	{
		Tier:            TierSilver,
		Threshold:       10000,
		DiscountPercent: 5,
		Benefits:        []string{"5% member discount", "Early access to sales"},
	},
	{
		Tier:            TierGold,
		Threshold:       50000,
		DiscountPercent: 10,
		Benefits:        []string{"10% member discount", "1.5x points on purchases", "Free shipping"},
	},
}

// TierInfo describes an account's position within the tier ladder.
type TierInfo struct {
	CurrentTier      TierDefinition  `json:"currentTier"`
	NextTier         *TierDefinition `json:"nextTier,omitempty"`
	PointsToNextTier int             `json:"pointsToNextTier"`
	ProgressPercent  float64         `json:"progressPercent"`
}

// TierForPoints returns the highest tier whose threshold is <= totalEarned.
func TierForPoints(totalEarned int) Tier {
	tier := tierTable[0].Tier
	for _, def := range tierTable {
		if totalEarned >= def.Threshold {
			tier = def.Tier
		}
	}
	return tier
}

// TierDefinitionFor returns the definition of the given tier. Unknown tiers
// fall back to bronze.
func TierDefinitionFor(tier Tier) TierDefinition {
	for _, def := range tierTable {
		if def.Tier == tier {
			return def
		}
	}
	return tierTable[0]
}

// nextTierDefinition returns the definition immediately above the given tier,
// or nil at the top of the ladder.
func nextTierDefinition(tier Tier) *TierDefinition {
	for i, def := range tierTable {
		if def.Tier == tier && i+1 < len(tierTable) {
			next := tierTable[i+1]
			return &next
		}
	}
	return nil
}

// TierInfoForPoints computes the tier ladder position for a lifetime earned
// total. At the top tier there is no next threshold, so progress is pinned to
// 100 rather than divided by an undefined value.
func TierInfoForPoints(totalEarned int) TierInfo {
	current := TierDefinitionFor(TierForPoints(totalEarned))
	next := nextTierDefinition(current.Tier)

	info := TierInfo{
		CurrentTier:      current,
		NextTier:         next,
		ProgressPercent:  100,
		PointsToNextTier: 0,
	}
	if next != nil {
		remaining := next.Threshold - totalEarned
		if remaining < 0 {
			remaining = 0
		}
		info.PointsToNextTier = remaining
		info.ProgressPercent = math.Min(100, float64(totalEarned)/float64(next.Threshold)*100)
	}
	return info
}

// PointsForAmount converts a purchase amount into points: floor(amount), with
// a 1.5x multiplier (floored again) for gold. Silver earns at the base rate.
// The result is clamped to be non-negative.
func PointsForAmount(amount float64, tier Tier) int {
	points := int(math.Floor(amount))
	if tier == TierGold {
		points = int(math.Floor(float64(points) * 1.5))
	}
	if points < 0 {
		points = 0
	}
	return points
}
