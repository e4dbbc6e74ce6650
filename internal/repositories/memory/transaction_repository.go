package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/commercekit/loyalty-backend/internal/models"
	"github.com/commercekit/loyalty-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure TransactionRepository implements the interface
var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

type orderKey struct {
	accountID primitive.ObjectID
	orderID   string
	txType    models.TransactionType
}

// TransactionRepository is an in-memory append-only ledger. The orderKey set
// mirrors the partial unique index of the MongoDB implementation.
type TransactionRepository struct {
	mu           sync.Mutex
	transactions []*models.Transaction
	seen         map[orderKey]struct{}
}

// NewTransactionRepository creates an empty in-memory ledger
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		seen: make(map[orderKey]struct{}),
	}
}

// EnsureIndexes is a no-op; uniqueness is enforced by the seen set
func (r *TransactionRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

// Create appends a new immutable transaction to the ledger
func (r *TransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if transaction.OrderID != "" {
		key := orderKey{transaction.AccountID, transaction.OrderID, transaction.Type}
		if _, dup := r.seen[key]; dup {
			return repositories.ErrDuplicateTransaction
		}
		r.seen[key] = struct{}{}
	}

	transaction.ID = primitive.NewObjectID()
	transaction.CreatedAt = time.Now()
	stored := *transaction
	r.transactions = append(r.transactions, &stored)
	return nil
}

// ExistsByOrderID reports whether a transaction of the given type already
// exists for this account and order
func (r *TransactionRepository) ExistsByOrderID(ctx context.Context, accountID primitive.ObjectID, orderID string, txType models.TransactionType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.seen[orderKey{accountID, orderID, txType}]
	return ok, nil
}

// FindByAccountID finds transactions for an account with pagination, newest first
func (r *TransactionRepository) FindByAccountID(ctx context.Context, accountID primitive.ObjectID, page, limit int) ([]*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Transaction
	for _, txn := range r.transactions {
		if txn.AccountID == accountID {
			matched = append(matched, txn)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	skip := (page - 1) * limit
	if skip >= len(matched) {
		return []*models.Transaction{}, nil
	}
	end := skip + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*models.Transaction, 0, end-skip)
	for _, txn := range matched[skip:end] {
		c := *txn
		out = append(out, &c)
	}
	return out, nil
}

// Count returns the number of ledger entries for an account
func (r *TransactionRepository) Count(ctx context.Context, accountID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, txn := range r.transactions {
		if txn.AccountID == accountID {
			count++
		}
	}
	return count, nil
}
