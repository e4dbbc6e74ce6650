package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/commercekit/loyalty-backend/internal/models"
	"github.com/commercekit/loyalty-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure LoyaltyServiceImpl implements LoyaltyService
var _ LoyaltyService = (*LoyaltyServiceImpl)(nil)

// LoyaltyServiceImpl is the points engine. All balance, lifetime-total and
// tier writes go through it; everything else reads.
//
// Concurrency: the read-check-write sections of AwardPoints and RedeemPoints
// are serialized per customer by a keyed mutex. The ledger's unique
// (accountId, orderId, type) index backstops the idempotency check across
// process boundaries, and the conditional balance filter on the redeem debit
// backstops the overdraft check. The ledger append and the account update run
// inside one storage transaction so a failure between them rolls back rather
// than leaving pointsBalance != totalEarned - totalRedeemed.
type LoyaltyServiceImpl struct {
	accountRepo repositories.AccountRepository
	ledgerRepo  repositories.TransactionRepository
	txRunner    repositories.TxRunner

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// NewLoyaltyService creates a new LoyaltyServiceImpl
func NewLoyaltyService(accountRepo repositories.AccountRepository, ledgerRepo repositories.TransactionRepository, txRunner repositories.TxRunner) *LoyaltyServiceImpl {
	return &LoyaltyServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		txRunner:    txRunner,
		locks:       make(map[string]*sync.Mutex),
		now:         time.Now,
	}
}

// lockCustomer acquires the per-customer mutex and returns its unlock func.
func (s *LoyaltyServiceImpl) lockCustomer(customerID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[customerID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[customerID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// GetOrCreateAccount resolves the account for a customer
func (s *LoyaltyServiceImpl) GetOrCreateAccount(ctx context.Context, customerID string) (*models.Account, error) {
	if customerID == "" {
		return nil, ErrInvalidCustomerID
	}
	account, err := s.accountRepo.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve loyalty account: %w", err)
	}
	return account, nil
}

// AwardPoints credits points and recomputes the tier from the new lifetime
// earned total. Duplicate orderIds come back as AlreadyProcessed.
func (s *LoyaltyServiceImpl) AwardPoints(ctx context.Context, customerID string, points int, opts PointsOptions) (*AwardResult, error) {
	if customerID == "" {
		return nil, ErrInvalidCustomerID
	}
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	if _, err := s.GetOrCreateAccount(ctx, customerID); err != nil {
		return nil, err
	}

	unlock := s.lockCustomer(customerID)
	defer unlock()

	// Re-read under the lock so the balances and the idempotency check see
	// the latest committed state.
	account, err := s.accountRepo.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load loyalty account: %w", err)
	}

	txType := models.TransactionTypeEarn
	if opts.Adjustment {
		txType = models.TransactionTypeAdjust
	}

	if opts.OrderID != "" {
		exists, err := s.ledgerRepo.ExistsByOrderID(ctx, account.ID, opts.OrderID, txType)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if exists {
			slog.Info("Duplicate award skipped", "customerId", customerID, "orderId", opts.OrderID)
			return &AwardResult{Account: account, AlreadyProcessed: true}, nil
		}
	}

	newTotalEarned := account.TotalEarned + points
	newTier := models.TierForPoints(newTotalEarned)
	tierUpgraded := newTier != account.Tier

	var updated *models.Account
	err = s.txRunner.WithTransaction(ctx, func(txCtx context.Context) error {
		txn := &models.Transaction{
			AccountID: account.ID,
			Points:    points,
			Type:      txType,
			Reason:    opts.Reason,
			OrderID:   opts.OrderID,
			Metadata:  opts.Metadata,
		}
		if err := s.ledgerRepo.Create(txCtx, txn); err != nil {
			return err
		}

		updated, err = s.accountRepo.ApplyPoints(txCtx, account.ID, repositories.PointsDelta{
			Balance:    points,
			Earned:     points,
			Tier:       newTier,
			MinBalance: -1,
		})
		return err
	})
	if errors.Is(err, repositories.ErrDuplicateTransaction) {
		// Another writer recorded this order between the probe and the
		// insert; the unique index turned the race into a no-op.
		slog.Info("Duplicate award skipped on insert", "customerId", customerID, "orderId", opts.OrderID)
		return &AwardResult{Account: account, AlreadyProcessed: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to award points: %w", err)
	}

	slog.Info("Points awarded",
		"customerId", customerID,
		"points", points,
		"orderId", opts.OrderID,
		"totalEarned", updated.TotalEarned,
		"tier", updated.Tier,
		"tierUpgraded", tierUpgraded,
	)
	return &AwardResult{
		Account:       updated,
		TierUpgraded:  tierUpgraded,
		PointsAwarded: points,
	}, nil
}

// RedeemPoints debits points from the balance. Lifetime earned and therefore
// tier are untouched.
func (s *LoyaltyServiceImpl) RedeemPoints(ctx context.Context, customerID string, points int, opts PointsOptions) (*models.Account, error) {
	if customerID == "" {
		return nil, ErrInvalidCustomerID
	}
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	if _, err := s.GetOrCreateAccount(ctx, customerID); err != nil {
		return nil, err
	}

	unlock := s.lockCustomer(customerID)
	defer unlock()

	account, err := s.accountRepo.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load loyalty account: %w", err)
	}

	if points > account.PointsBalance {
		return nil, &InsufficientPointsError{Requested: points, Available: account.PointsBalance}
	}

	txType := models.TransactionTypeRedeem
	if opts.Adjustment {
		txType = models.TransactionTypeAdjust
	}

	var updated *models.Account
	err = s.txRunner.WithTransaction(ctx, func(txCtx context.Context) error {
		txn := &models.Transaction{
			AccountID: account.ID,
			Points:    -points,
			Type:      txType,
			Reason:    opts.Reason,
			OrderID:   opts.OrderID,
			Metadata:  opts.Metadata,
		}
		if err := s.ledgerRepo.Create(txCtx, txn); err != nil {
			return err
		}

		updated, err = s.accountRepo.ApplyPoints(txCtx, account.ID, repositories.PointsDelta{
			Balance:    -points,
			Redeemed:   points,
			Tier:       account.Tier,
			MinBalance: points,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to redeem points: %w", err)
	}

	slog.Info("Points redeemed",
		"customerId", customerID,
		"points", points,
		"balance", updated.PointsBalance,
	)
	return updated, nil
}

// AwardPointsForOrder converts a completed order amount into points at the
// account's current tier and awards them keyed on the order. An amount too
// small to earn a point is a no-op rather than an error.
func (s *LoyaltyServiceImpl) AwardPointsForOrder(ctx context.Context, customerID, orderID string, amount float64, metadata map[string]interface{}) (*AwardResult, error) {
	account, err := s.GetOrCreateAccount(ctx, customerID)
	if err != nil {
		return nil, err
	}

	points := models.PointsForAmount(amount, account.Tier)
	if points <= 0 {
		slog.Info("Order below points threshold", "customerId", customerID, "orderId", orderID, "amount", amount)
		return &AwardResult{Account: account}, nil
	}

	return s.AwardPoints(ctx, customerID, points, PointsOptions{
		Reason:   fmt.Sprintf("Points for order %s", orderID),
		OrderID:  orderID,
		Metadata: metadata,
	})
}

// CalculateTier maps a lifetime earned total onto a tier
func (s *LoyaltyServiceImpl) CalculateTier(totalEarned int) models.Tier {
	return models.TierForPoints(totalEarned)
}

// CalculatePointsForAmount converts a purchase amount into points at the given tier
func (s *LoyaltyServiceImpl) CalculatePointsForAmount(amount float64, tier models.Tier) int {
	return models.PointsForAmount(amount, tier)
}

// GetTierInfo returns the account's position within the tier ladder
func (s *LoyaltyServiceImpl) GetTierInfo(ctx context.Context, customerID string) (*models.TierInfo, error) {
	account, err := s.GetOrCreateAccount(ctx, customerID)
	if err != nil {
		return nil, err
	}
	info := models.TierInfoForPoints(account.TotalEarned)
	return &info, nil
}

// ListTransactions returns one page of ledger history, newest first
func (s *LoyaltyServiceImpl) ListTransactions(ctx context.Context, customerID string, page, limit int) (*TransactionPage, error) {
	account, err := s.GetOrCreateAccount(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	transactions, err := s.ledgerRepo.FindByAccountID(ctx, account.ID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	total, err := s.ledgerRepo.Count(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	return &TransactionPage{
		Transactions: transactions,
		Page:         page,
		Limit:        limit,
		Total:        total,
	}, nil
}

// UpdateProfile updates the caller-editable account fields (birthday,
// metadata). Balances and tier are not reachable from here.
func (s *LoyaltyServiceImpl) UpdateProfile(ctx context.Context, customerID string, birthday *time.Time, metadata map[string]interface{}) (*models.Account, error) {
	account, err := s.GetOrCreateAccount(ctx, customerID)
	if err != nil {
		return nil, err
	}
	updated, err := s.accountRepo.UpdateProfile(ctx, account.ID, birthday, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to update account profile: %w", err)
	}
	return updated, nil
}

// IsBirthdayRewardEligible checks the once-per-calendar-year birthday window
func (s *LoyaltyServiceImpl) IsBirthdayRewardEligible(ctx context.Context, customerID string) (bool, error) {
	account, err := s.GetOrCreateAccount(ctx, customerID)
	if err != nil {
		return false, err
	}

	if account.Birthday == nil {
		return false, nil
	}
	now := s.now().UTC()
	if account.Birthday.Month() != now.Month() {
		return false, nil
	}
	if account.BirthdayRewardSentYear == now.Year() {
		return false, nil
	}
	return true, nil
}

// MarkBirthdayRewardSent records the current calendar year as rewarded.
// Setting the same year twice is harmless.
func (s *LoyaltyServiceImpl) MarkBirthdayRewardSent(ctx context.Context, customerID string) error {
	account, err := s.GetOrCreateAccount(ctx, customerID)
	if err != nil {
		return err
	}

	year := s.now().UTC().Year()
	if err := s.accountRepo.SetBirthdayRewardSentYear(ctx, account.ID, year); err != nil {
		return fmt.Errorf("failed to mark birthday reward sent: %w", err)
	}
	slog.Info("Birthday reward marked sent", "customerId", customerID, "year", year)
	return nil
}
