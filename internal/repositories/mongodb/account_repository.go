package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/commercekit/loyalty-backend/internal/models"
	"github.com/commercekit/loyalty-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure AccountRepository implements the interface
var _ repositories.AccountRepository = (*AccountRepository)(nil)

// AccountRepository handles MongoDB operations for loyalty accounts
type AccountRepository struct {
	collection *mongo.Collection
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		collection: db.Collection("loyalty_accounts"),
	}
}

// EnsureIndexes creates the unique customerId index that makes lazy account
// creation safe under concurrent first-time calls.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "customerId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// GetOrCreate returns the account for customerID, upserting a zero-balance
// bronze account on first reference. The upsert plus the unique index means
// concurrent callers all land on the same document.
func (r *AccountRepository) GetOrCreate(ctx context.Context, customerID string) (*models.Account, error) {
	now := time.Now()
	filter := bson.M{"customerId": customerID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"customerId":    customerID,
			"pointsBalance": 0,
			"totalEarned":   0,
			"totalRedeemed": 0,
			"tier":          models.TierBronze,
			"createdAt":     now,
			"updatedAt":     now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var account models.Account
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByCustomerID finds an account by its external customer reference
func (r *AccountRepository) FindByCustomerID(ctx context.Context, customerID string) (*models.Account, error) {
	var account models.Account
	err := r.collection.FindOne(ctx, bson.M{"customerId": customerID}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByID finds an account by ID
func (r *AccountRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	var account models.Account
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ApplyPoints applies the signed deltas and sets the tier in a single atomic
// document update. When delta.MinBalance >= 0 the filter requires the current
// balance to cover it, so a racing debit cannot push the balance negative.
func (r *AccountRepository) ApplyPoints(ctx context.Context, id primitive.ObjectID, delta repositories.PointsDelta) (*models.Account, error) {
	filter := bson.M{"_id": id}
	if delta.MinBalance >= 0 {
		filter["pointsBalance"] = bson.M{"$gte": delta.MinBalance}
	}
	update := bson.M{
		"$inc": bson.M{
			"pointsBalance": delta.Balance,
			"totalEarned":   delta.Earned,
			"totalRedeemed": delta.Redeemed,
		},
		"$set": bson.M{
			"tier":      delta.Tier,
			"updatedAt": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var account models.Account
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateProfile partially updates the caller-editable fields
func (r *AccountRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, birthday *time.Time, metadata map[string]interface{}) (*models.Account, error) {
	set := bson.M{"updatedAt": time.Now()}
	if birthday != nil {
		set["birthday"] = *birthday
	}
	if metadata != nil {
		set["metadata"] = metadata
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var account models.Account
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SetBirthdayRewardSentYear records the calendar year a birthday reward was granted
func (r *AccountRepository) SetBirthdayRewardSentYear(ctx context.Context, id primitive.ObjectID, year int) error {
	update := bson.M{"$set": bson.M{
		"birthdayRewardSentYear": year,
		"updatedAt":              time.Now(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrAccountNotFound
	}
	return nil
}
