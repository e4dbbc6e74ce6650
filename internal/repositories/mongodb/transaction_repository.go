package mongodb

import (
	"context"
	"time"

	"github.com/commercekit/loyalty-backend/internal/models"
	"github.com/commercekit/loyalty-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure TransactionRepository implements the interface
var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository handles MongoDB operations for the points ledger.
// The collection is append-only: no update or delete paths exist.
type TransactionRepository struct {
	collection *mongo.Collection
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection("loyalty_transactions"),
	}
}

// EnsureIndexes creates the ledger indexes. The partial unique index on
// (accountId, orderId, type) enforces at most one earn per order even when two
// writers race past the existence probe; inserts without an orderId are
// exempt from the constraint.
func (r *TransactionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "accountId", Value: 1},
				{Key: "orderId", Value: 1},
				{Key: "type", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"orderId": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{
				{Key: "accountId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
	})
	return err
}

// Create appends a new immutable transaction to the ledger
func (r *TransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	transaction.ID = primitive.NewObjectID()
	transaction.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, transaction)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicateTransaction
	}
	return err
}

// ExistsByOrderID reports whether a transaction of the given type already
// exists for this account and order
func (r *TransactionRepository) ExistsByOrderID(ctx context.Context, accountID primitive.ObjectID, orderID string, txType models.TransactionType) (bool, error) {
	filter := bson.M{
		"accountId": accountID,
		"orderId":   orderID,
		"type":      txType,
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByAccountID finds transactions for an account with pagination, newest first
func (r *TransactionRepository) FindByAccountID(ctx context.Context, accountID primitive.ObjectID, page, limit int) ([]*models.Transaction, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"accountId": accountID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	return transactions, nil
}

// Count returns the number of ledger entries for an account
func (r *TransactionRepository) Count(ctx context.Context, accountID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"accountId": accountID})
}
