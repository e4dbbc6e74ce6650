package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commercekit/loyalty-backend/internal/models"
)

// Validation errors rejected at the service boundary, before anything reaches
// the ledger.
var (
	ErrInvalidCustomerID = errors.New("customerId is required")
	ErrInvalidPoints     = errors.New("points must be a positive integer")
)

// ErrInvalidCredentials is returned by AuthService.Login for a bad email or
// password. Deliberately indistinguishable between the two.
var ErrInvalidCredentials = errors.New("invalid email or password")

// InsufficientPointsError is returned when a redemption exceeds the current
// balance. No state changes when it is returned.
type InsufficientPointsError struct {
	Requested int
	Available int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: requested %d, available %d", e.Requested, e.Available)
}

// PointsOptions carries the optional fields of an award or redemption.
type PointsOptions struct {
	Reason string
	// OrderID is the idempotency key for earns triggered by a purchase.
	OrderID  string
	Metadata map[string]interface{}
	// Adjustment records the transaction as a manual adjust instead of a
	// regular earn/redeem.
	Adjustment bool
}

// AwardResult is the outcome of an award call. A duplicate orderId is not an
// error: it comes back as AlreadyProcessed with nothing mutated.
type AwardResult struct {
	Account          *models.Account `json:"account"`
	TierUpgraded     bool            `json:"tierUpgraded"`
	AlreadyProcessed bool            `json:"alreadyProcessed"`
	PointsAwarded    int             `json:"pointsAwarded"`
}

// TransactionPage is one page of ledger history, newest first.
type TransactionPage struct {
	Transactions []*models.Transaction `json:"transactions"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
	Total        int64                 `json:"total"`
}

// LoyaltyService defines the interface for the loyalty points engine. It is
// the only component that writes to accounts and the ledger.
type LoyaltyService interface {
	// GetOrCreateAccount resolves the account for a customer, lazily creating
	// a zero-balance bronze account on first reference.
	GetOrCreateAccount(ctx context.Context, customerID string) (*models.Account, error)

	// AwardPoints credits points to the customer's account. With an OrderID
	// the award is idempotent: at most one earn is recorded per order, and
	// duplicates return AlreadyProcessed without mutating anything.
	AwardPoints(ctx context.Context, customerID string, points int, opts PointsOptions) (*AwardResult, error)

	// RedeemPoints debits points from the customer's balance. Fails with
	// *InsufficientPointsError when points exceed the balance. Tier is not
	// recomputed: it tracks lifetime earned points only.
	RedeemPoints(ctx context.Context, customerID string, points int, opts PointsOptions) (*models.Account, error)

	// AwardPointsForOrder converts a completed order amount into points at
	// the account's current tier and awards them with the order as
	// idempotency key.
	AwardPointsForOrder(ctx context.Context, customerID, orderID string, amount float64, metadata map[string]interface{}) (*AwardResult, error)

	// CalculateTier maps a lifetime earned total onto a tier.
	CalculateTier(totalEarned int) models.Tier

	// CalculatePointsForAmount converts a purchase amount into points at the
	// given tier.
	CalculatePointsForAmount(amount float64, tier models.Tier) int

	GetTierInfo(ctx context.Context, customerID string) (*models.TierInfo, error)
	ListTransactions(ctx context.Context, customerID string, page, limit int) (*TransactionPage, error)
	UpdateProfile(ctx context.Context, customerID string, birthday *time.Time, metadata map[string]interface{}) (*models.Account, error)

	// IsBirthdayRewardEligible reports whether the customer can receive a
	// birthday reward: birthday set, current month matches, and no reward
	// granted yet this calendar year.
	IsBirthdayRewardEligible(ctx context.Context, customerID string) (bool, error)

	// MarkBirthdayRewardSent records the current year as rewarded. Callers
	// should check IsBirthdayRewardEligible immediately before to avoid
	// issuing the external reward twice.
	MarkBirthdayRewardSent(ctx context.Context, customerID string) error
}

// AuthService defines the interface for admin console authentication
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	CreateAdminUser(ctx context.Context, firstName, lastName, email, password, role string) (*models.AdminUser, error)
}
