package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeEarn   TransactionType = "earn"
	TransactionTypeRedeem TransactionType = "redeem"
	TransactionTypeAdjust TransactionType = "adjust"
)

// Transaction is a single immutable entry in the append-only points ledger.
// Corrections are modeled as new adjust transactions, never edits.
type Transaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AccountID primitive.ObjectID `bson:"accountId" json:"accountId"`
	// Points is a signed delta: positive for earn/positive-adjust, negative
	// for redeem/negative-adjust.
	Points int             `bson:"points" json:"points"`
	Type   TransactionType `bson:"type" json:"type"`
	Reason string          `bson:"reason,omitempty" json:"reason,omitempty"`
	// OrderID is the external idempotency key: at most one earn transaction
	// exists per (accountId, orderId).
	OrderID   string                 `bson:"orderId,omitempty" json:"orderId,omitempty"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time              `bson:"createdAt" json:"createdAt"`
}
