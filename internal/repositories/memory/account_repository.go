package memory

import (
	"context"
	"sync"
	"time"

	"github.com/commercekit/loyalty-backend/internal/models"
	"github.com/commercekit/loyalty-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure AccountRepository implements the interface
var _ repositories.AccountRepository = (*AccountRepository)(nil)

// AccountRepository is an in-memory AccountRepository used by tests and the
// in-memory dev mode. A single mutex stands in for the document-level
// atomicity the MongoDB implementation gets from FindOneAndUpdate.
type AccountRepository struct {
	mu           sync.Mutex
	byCustomerID map[string]*models.Account
	byID         map[primitive.ObjectID]*models.Account
}

// NewAccountRepository creates an empty in-memory AccountRepository
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byCustomerID: make(map[string]*models.Account),
		byID:         make(map[primitive.ObjectID]*models.Account),
	}
}

// EnsureIndexes is a no-op; uniqueness is enforced by the keyed map
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

// GetOrCreate returns the account for customerID, creating a zero-balance
// bronze account on first reference
func (r *AccountRepository) GetOrCreate(ctx context.Context, customerID string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account, ok := r.byCustomerID[customerID]; ok {
		return copyAccount(account), nil
	}

	now := time.Now()
	account := &models.Account{
		ID:         primitive.NewObjectID(),
		CustomerID: customerID,
		Tier:       models.TierBronze,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.byCustomerID[customerID] = account
	r.byID[account.ID] = account
	return copyAccount(account), nil
}

// FindByCustomerID finds an account by its external customer reference
func (r *AccountRepository) FindByCustomerID(ctx context.Context, customerID string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byCustomerID[customerID]
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

// FindByID finds an account by ID
func (r *AccountRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

// ApplyPoints applies the signed deltas and sets the tier atomically
func (r *AccountRepository) ApplyPoints(ctx context.Context, id primitive.ObjectID, delta repositories.PointsDelta) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	if delta.MinBalance >= 0 && account.PointsBalance < delta.MinBalance {
		return nil, repositories.ErrAccountNotFound
	}

	account.PointsBalance += delta.Balance
	account.TotalEarned += delta.Earned
	account.TotalRedeemed += delta.Redeemed
	account.Tier = delta.Tier
	account.UpdatedAt = time.Now()
	return copyAccount(account), nil
}

// UpdateProfile partially updates the caller-editable fields
func (r *AccountRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, birthday *time.Time, metadata map[string]interface{}) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	if birthday != nil {
		b := *birthday
		account.Birthday = &b
	}
	if metadata != nil {
		account.Metadata = metadata
	}
	account.UpdatedAt = time.Now()
	return copyAccount(account), nil
}

// SetBirthdayRewardSentYear records the calendar year a birthday reward was granted
func (r *AccountRepository) SetBirthdayRewardSentYear(ctx context.Context, id primitive.ObjectID, year int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return repositories.ErrAccountNotFound
	}
	account.BirthdayRewardSentYear = year
	account.UpdatedAt = time.Now()
	return nil
}

func copyAccount(account *models.Account) *models.Account {
	out := *account
	if account.Birthday != nil {
		b := *account.Birthday
		out.Birthday = &b
	}
	return &out
}
