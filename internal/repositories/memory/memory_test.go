package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/commercekit/loyalty-backend/internal/models"
	"github.com/commercekit/loyalty-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_GetOrCreateConcurrent(t *testing.T) {
	repo := NewAccountRepository()
	ctx := context.Background()

	const workers = 16
	accounts := make([]*models.Account, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			accounts[i], _ = repo.GetOrCreate(ctx, "cust_1")
		}(i)
	}
	wg.Wait()

	for _, account := range accounts {
		require.NotNil(t, account)
		assert.Equal(t, accounts[0].ID, account.ID, "all callers must land on the same account")
	}
}

func TestAccountRepository_ApplyPointsBalanceGuard(t *testing.T) {
	repo := NewAccountRepository()
	ctx := context.Background()

	account, err := repo.GetOrCreate(ctx, "cust_1")
	require.NoError(t, err)

	_, err = repo.ApplyPoints(ctx, account.ID, repositories.PointsDelta{
		Balance: 100, Earned: 100, Tier: models.TierBronze, MinBalance: -1,
	})
	require.NoError(t, err)

	// Debit guarded by a minimum balance the account does not have
	_, err = repo.ApplyPoints(ctx, account.ID, repositories.PointsDelta{
		Balance: -500, Redeemed: 500, Tier: models.TierBronze, MinBalance: 500,
	})
	assert.Error(t, err)

	current, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, current.PointsBalance)
}

func TestTransactionRepository_DuplicateOrderRejected(t *testing.T) {
	accountRepo := NewAccountRepository()
	ledger := NewTransactionRepository()
	ctx := context.Background()

	account, err := accountRepo.GetOrCreate(ctx, "cust_1")
	require.NoError(t, err)

	txn := &models.Transaction{
		AccountID: account.ID,
		Points:    100,
		Type:      models.TransactionTypeEarn,
		OrderID:   "order_1",
	}
	require.NoError(t, ledger.Create(ctx, txn))

	dup := &models.Transaction{
		AccountID: account.ID,
		Points:    100,
		Type:      models.TransactionTypeEarn,
		OrderID:   "order_1",
	}
	err = ledger.Create(ctx, dup)
	assert.ErrorIs(t, err, repositories.ErrDuplicateTransaction)

	// A different type under the same order is a distinct entry
	redeem := &models.Transaction{
		AccountID: account.ID,
		Points:    -50,
		Type:      models.TransactionTypeRedeem,
		OrderID:   "order_1",
	}
	assert.NoError(t, ledger.Create(ctx, redeem))

	// Entries without an orderId never collide
	for i := 0; i < 2; i++ {
		assert.NoError(t, ledger.Create(ctx, &models.Transaction{
			AccountID: account.ID,
			Points:    10,
			Type:      models.TransactionTypeEarn,
		}))
	}

	count, err := ledger.Count(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}
