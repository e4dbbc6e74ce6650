package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/commercekit/loyalty-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrAccountNotFound is returned when an account lookup misses. Not reachable
// through the service entry points, which all get-or-create first; retained as
// a defensive signal for callers that bypass them.
var ErrAccountNotFound = errors.New("loyalty account not found")

// ErrDuplicateTransaction is returned by TransactionRepository.Create when the
// unique (accountId, orderId, type) constraint rejects the insert. The points
// engine folds it into the idempotent already-processed result.
var ErrDuplicateTransaction = errors.New("transaction already recorded for this order")

// AccountRepository defines the interface for loyalty account persistence.
// Balance, lifetime totals and tier are only ever written through ApplyPoints
// by the points engine; UpdateProfile covers the caller-editable fields.
type AccountRepository interface {
	// GetOrCreate returns the account for the customer, atomically creating a
	// zero-balance bronze account on first reference. Concurrent first-time
	// calls for the same customer must not create duplicates.
	GetOrCreate(ctx context.Context, customerID string) (*models.Account, error)
	FindByCustomerID(ctx context.Context, customerID string) (*models.Account, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	// ApplyPoints atomically applies the signed deltas and sets the tier,
	// returning the updated account. The filter is optionally guarded by a
	// minimum balance so a lost redeem race cannot overdraft.
	ApplyPoints(ctx context.Context, id primitive.ObjectID, delta PointsDelta) (*models.Account, error)
	// UpdateProfile partially updates the caller-editable fields; nil fields
	// are left unchanged.
	UpdateProfile(ctx context.Context, id primitive.ObjectID, birthday *time.Time, metadata map[string]interface{}) (*models.Account, error)
	SetBirthdayRewardSentYear(ctx context.Context, id primitive.ObjectID, year int) error
	EnsureIndexes(ctx context.Context) error
}

// PointsDelta describes one atomic account mutation made by the points engine.
type PointsDelta struct {
	Balance  int
	Earned   int
	Redeemed int
	Tier     models.Tier
	// MinBalance, when >= 0, makes the update conditional on
	// pointsBalance >= MinBalance. Use -1 to skip the guard.
	MinBalance int
}

// TransactionRepository defines the interface for the append-only points
// ledger. Transactions are immutable and never deleted.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	// ExistsByOrderID is the idempotency probe for the (accountId, orderId,
	// type) uniqueness invariant.
	ExistsByOrderID(ctx context.Context, accountID primitive.ObjectID, orderID string, txType models.TransactionType) (bool, error)
	// FindByAccountID returns transactions ordered by createdAt descending.
	FindByAccountID(ctx context.Context, accountID primitive.ObjectID, page, limit int) ([]*models.Transaction, error)
	Count(ctx context.Context, accountID primitive.ObjectID) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// AdminUserRepository defines the interface for admin console operators.
type AdminUserRepository interface {
	Create(ctx context.Context, adminUser *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AdminUser, error)
}

// TxRunner executes fn inside a single storage transaction where the backing
// store supports one, so a failure between ledger append and account update
// rolls back instead of leaving the balance invariant broken.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
