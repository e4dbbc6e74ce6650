package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/commercekit/loyalty-backend/internal/models"
	"github.com/commercekit/loyalty-backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *LoyaltyServiceImpl {
	return NewLoyaltyService(
		memory.NewAccountRepository(),
		memory.NewTransactionRepository(),
		memory.NewTxRunner(),
	)
}

func TestGetOrCreateAccount_NewCustomer(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	account, err := svc.GetOrCreateAccount(ctx, "cust_1")
	require.NoError(t, err)

	assert.Equal(t, "cust_1", account.CustomerID)
	assert.Equal(t, 0, account.PointsBalance)
	assert.Equal(t, 0, account.TotalEarned)
	assert.Equal(t, 0, account.TotalRedeemed)
	assert.Equal(t, models.TierBronze, account.Tier)

	// Second call resolves the same account
	again, err := svc.GetOrCreateAccount(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)
}

func TestGetOrCreateAccount_EmptyCustomerID(t *testing.T) {
	svc := newTestService()

	_, err := svc.GetOrCreateAccount(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidCustomerID)
}

func TestAwardPoints_UpgradesTier(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	result, err := svc.AwardPoints(ctx, "cust_1", 12000, PointsOptions{OrderID: "order_1"})
	require.NoError(t, err)

	assert.False(t, result.AlreadyProcessed)
	assert.True(t, result.TierUpgraded)
	assert.Equal(t, 12000, result.Account.PointsBalance)
	assert.Equal(t, 12000, result.Account.TotalEarned)
	assert.Equal(t, models.TierSilver, result.Account.Tier)
}

func TestAwardPoints_DuplicateOrderIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.AwardPoints(ctx, "cust_1", 12000, PointsOptions{OrderID: "order_1"})
	require.NoError(t, err)
	require.False(t, first.AlreadyProcessed)

	second, err := svc.AwardPoints(ctx, "cust_1", 12000, PointsOptions{OrderID: "order_1"})
	require.NoError(t, err)

	assert.True(t, second.AlreadyProcessed)
	assert.False(t, second.TierUpgraded)
	assert.Equal(t, 12000, second.Account.PointsBalance)
	assert.Equal(t, 12000, second.Account.TotalEarned)

	// Exactly one ledger entry exists
	page, err := svc.ListTransactions(ctx, "cust_1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestAwardPoints_ConcurrentDuplicateOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	const workers = 8
	results := make([]*AwardResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.AwardPoints(ctx, "cust_1", 500, PointsOptions{OrderID: "order_1"})
		}(i)
	}
	wg.Wait()

	processed := 0
	for i, result := range results {
		require.NoError(t, errs[i])
		if !result.AlreadyProcessed {
			processed++
		}
	}
	assert.Equal(t, 1, processed, "exactly one concurrent award should land")

	account, err := svc.GetOrCreateAccount(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, 500, account.PointsBalance)
	assert.Equal(t, 500, account.TotalEarned)
}

func TestAwardPoints_RejectsNonPositive(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AwardPoints(ctx, "cust_1", 0, PointsOptions{})
	assert.ErrorIs(t, err, ErrInvalidPoints)

	_, err = svc.AwardPoints(ctx, "cust_1", -100, PointsOptions{})
	assert.ErrorIs(t, err, ErrInvalidPoints)

	account, err := svc.GetOrCreateAccount(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, 0, account.PointsBalance)
}

func TestRedeemPoints(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AwardPoints(ctx, "cust_1", 12000, PointsOptions{OrderID: "order_1"})
	require.NoError(t, err)

	account, err := svc.RedeemPoints(ctx, "cust_1", 5000, PointsOptions{Reason: "Discount at checkout"})
	require.NoError(t, err)

	assert.Equal(t, 7000, account.PointsBalance)
	assert.Equal(t, 5000, account.TotalRedeemed)
	assert.Equal(t, 12000, account.TotalEarned)
}

func TestRedeemPoints_Overdraft(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AwardPoints(ctx, "cust_1", 12000, PointsOptions{OrderID: "order_1"})
	require.NoError(t, err)
	_, err = svc.RedeemPoints(ctx, "cust_1", 5000, PointsOptions{})
	require.NoError(t, err)

	_, err = svc.RedeemPoints(ctx, "cust_1", 8000, PointsOptions{})

	var insufficient *InsufficientPointsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 8000, insufficient.Requested)
	assert.Equal(t, 7000, insufficient.Available)

	// Nothing changed
	account, err := svc.GetOrCreateAccount(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, 7000, account.PointsBalance)
	assert.Equal(t, 5000, account.TotalRedeemed)
}

func TestRedeemPoints_ConcurrentOverdraft(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AwardPoints(ctx, "cust_1", 1000, PointsOptions{OrderID: "order_1"})
	require.NoError(t, err)

	// Two concurrent debits of 600 against a balance of 1000: exactly one
	// may succeed.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RedeemPoints(ctx, "cust_1", 600, PointsOptions{})
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			var insufficient *InsufficientPointsError
			require.ErrorAs(t, err, &insufficient)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	account, err := svc.GetOrCreateAccount(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, 400, account.PointsBalance)
}

func TestRedeemPoints_DoesNotChangeTier(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AwardPoints(ctx, "cust_1", 52000, PointsOptions{OrderID: "order_1"})
	require.NoError(t, err)

	account, err := svc.RedeemPoints(ctx, "cust_1", 50000, PointsOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2000, account.PointsBalance)
	assert.Equal(t, models.TierGold, account.Tier, "tier tracks lifetime earned, not balance")
}

func TestBalanceInvariant(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	check := func() {
		account, err := svc.GetOrCreateAccount(ctx, "cust_1")
		require.NoError(t, err)
		assert.Equal(t, account.TotalEarned-account.TotalRedeemed, account.PointsBalance)
		assert.Equal(t, models.TierForPoints(account.TotalEarned), account.Tier)
		assert.GreaterOrEqual(t, account.PointsBalance, 0)
	}

	_, err := svc.AwardPoints(ctx, "cust_1", 12000, PointsOptions{OrderID: "order_1"})
	require.NoError(t, err)
	check()

	_, err = svc.RedeemPoints(ctx, "cust_1", 5000, PointsOptions{})
	require.NoError(t, err)
	check()

	_, err = svc.RedeemPoints(ctx, "cust_1", 8000, PointsOptions{})
	require.Error(t, err)
	check()

	_, err = svc.AwardPoints(ctx, "cust_1", 40000, PointsOptions{OrderID: "order_2"})
	require.NoError(t, err)
	check()

	account, err := svc.GetOrCreateAccount(ctx, "cust_1")
	require.NoError(t, err)
	assert.Equal(t, 52000, account.TotalEarned)
	assert.Equal(t, models.TierGold, account.Tier)
}

func TestAwardPoints_AdjustmentType(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AwardPoints(ctx, "cust_1", 250, PointsOptions{
		Reason:     "Goodwill credit",
		Adjustment: true,
	})
	require.NoError(t, err)

	page, err := svc.ListTransactions(ctx, "cust_1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, models.TransactionTypeAdjust, page.Transactions[0].Type)
	assert.Equal(t, 250, page.Transactions[0].Points)
}

func TestAwardPointsForOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	result, err := svc.AwardPointsForOrder(ctx, "cust_1", "order_1", 1000, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000, result.PointsAwarded)

	// Duplicate delivery of the same order is a no-op
	dup, err := svc.AwardPointsForOrder(ctx, "cust_1", "order_1", 1000, nil)
	require.NoError(t, err)
	assert.True(t, dup.AlreadyProcessed)

	// Push the account to gold, then check the multiplier applies
	_, err = svc.AwardPoints(ctx, "cust_1", 60000, PointsOptions{OrderID: "order_2"})
	require.NoError(t, err)

	goldResult, err := svc.AwardPointsForOrder(ctx, "cust_1", "order_3", 1000, nil)
	require.NoError(t, err)
	assert.Equal(t, 1500, goldResult.PointsAwarded)
}

func TestAwardPointsForOrder_BelowThreshold(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	result, err := svc.AwardPointsForOrder(ctx, "cust_1", "order_1", 0.5, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.PointsAwarded)
	assert.False(t, result.AlreadyProcessed)

	page, err := svc.ListTransactions(ctx, "cust_1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
}

func TestListTransactions_PaginationAndOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.AwardPoints(ctx, "cust_1", 100*(i+1), PointsOptions{})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // Distinct createdAt for ordering
	}

	page, err := svc.ListTransactions(ctx, "cust_1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Transactions, 3)
	// Newest first
	assert.Equal(t, 500, page.Transactions[0].Points)
	assert.Equal(t, 400, page.Transactions[1].Points)

	last, err := svc.ListTransactions(ctx, "cust_1", 2, 3)
	require.NoError(t, err)
	require.Len(t, last.Transactions, 2)
	assert.Equal(t, 200, last.Transactions[0].Points)
	assert.Equal(t, 100, last.Transactions[1].Points)
}

func TestBirthdayRewardGate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// No birthday set
	eligible, err := svc.IsBirthdayRewardEligible(ctx, "cust_1")
	require.NoError(t, err)
	assert.False(t, eligible)

	// Birthday in June
	birthday := time.Date(1990, time.June, 3, 0, 0, 0, 0, time.UTC)
	_, err = svc.UpdateProfile(ctx, "cust_1", &birthday, nil)
	require.NoError(t, err)

	eligible, err = svc.IsBirthdayRewardEligible(ctx, "cust_1")
	require.NoError(t, err)
	assert.True(t, eligible)

	// Reward sent this year
	require.NoError(t, svc.MarkBirthdayRewardSent(ctx, "cust_1"))

	eligible, err = svc.IsBirthdayRewardEligible(ctx, "cust_1")
	require.NoError(t, err)
	assert.False(t, eligible)

	// Eligible again the following year
	now = now.AddDate(1, 0, 0)
	eligible, err = svc.IsBirthdayRewardEligible(ctx, "cust_1")
	require.NoError(t, err)
	assert.True(t, eligible)
}

func TestBirthdayRewardGate_WrongMonth(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	svc.now = func() time.Time {
		return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	}

	birthday := time.Date(1990, time.June, 3, 0, 0, 0, 0, time.UTC)
	_, err := svc.UpdateProfile(ctx, "cust_1", &birthday, nil)
	require.NoError(t, err)

	eligible, err := svc.IsBirthdayRewardEligible(ctx, "cust_1")
	require.NoError(t, err)
	assert.False(t, eligible)
}

func TestCalculateTierAndPoints(t *testing.T) {
	svc := newTestService()

	assert.Equal(t, models.TierBronze, svc.CalculateTier(0))
	assert.Equal(t, models.TierSilver, svc.CalculateTier(10000))
	assert.Equal(t, models.TierGold, svc.CalculateTier(50000))

	assert.Equal(t, 1000, svc.CalculatePointsForAmount(1000, models.TierBronze))
	assert.Equal(t, 1500, svc.CalculatePointsForAmount(1000, models.TierGold))
}
