package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is the per-customer loyalty record. Exactly one account exists per
// customer; it is created lazily on first reference and never deleted.
type Account struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CustomerID string             `bson:"customerId" json:"customerId"` // External identity reference, unique
	// PointsBalance is always totalEarned - totalRedeemed and never negative.
	PointsBalance int `bson:"pointsBalance" json:"pointsBalance"`
	// TotalEarned is the monotonically non-decreasing lifetime sum of earns.
	// Tier is derived from it and never regresses.
	TotalEarned   int                    `bson:"totalEarned" json:"totalEarned"`
	TotalRedeemed int                    `bson:"totalRedeemed" json:"totalRedeemed"`
	Tier          Tier                   `bson:"tier" json:"tier"`
	Birthday      *time.Time             `bson:"birthday,omitempty" json:"birthday,omitempty"` // Month/day significant
	// BirthdayRewardSentYear is the last calendar year a birthday reward was
	// granted; zero means never.
	BirthdayRewardSentYear int                    `bson:"birthdayRewardSentYear,omitempty" json:"birthdayRewardSentYear,omitempty"`
	Metadata               map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt              time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time              `bson:"updatedAt" json:"updatedAt"`
}
