package donations

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var ErrDonationNotFound = errors.New("donation not found")

// FindOptions controls paging of Find
type FindOptions struct {
	Skip        int64
	Limit       int64
	NewestFirst bool
}

// Repository persists donation requests
type Repository interface {
	Create(ctx context.Context, d *Donation) (bson.ObjectID, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*Donation, error)
	Find(ctx context.Context, f Filter, opts FindOptions) ([]Donation, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Update(ctx context.Context, id bson.ObjectID, set bson.D) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

// MongoRepository stores donations in a MongoDB collection
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over the donations collection
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// EnsureIndexes creates the indexes backing the listing filters
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "donationStatus", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "requesterEmail", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create donation indexes: %w", err)
	}
	return nil
}

// Create inserts a donation request
func (r *MongoRepository) Create(ctx context.Context, d *Donation) (bson.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, d)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("failed to insert donation: %w", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return bson.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

// GetByID returns one donation request
func (r *MongoRepository) GetByID(ctx context.Context, id bson.ObjectID) (*Donation, error) {
	var d Donation
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDonationNotFound
		}
		return nil, fmt.Errorf("failed to find donation: %w", err)
	}
	return &d, nil
}

// Find lists donation requests matching f
func (r *MongoRepository) Find(ctx context.Context, f Filter, opts FindOptions) ([]Donation, error) {
	findOpts := options.Find().SetSkip(opts.Skip).SetLimit(opts.Limit)
	if opts.NewestFirst {
		findOpts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
	}

	cursor, err := r.coll.Find(ctx, f.document(), findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}

	donations := []Donation{}
	if err := cursor.All(ctx, &donations); err != nil {
		return nil, fmt.Errorf("failed to decode donations: %w", err)
	}
	return donations, nil
}

// Count returns the number of donation requests matching f
func (r *MongoRepository) Count(ctx context.Context, f Filter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, f.document())
	if err != nil {
		return 0, fmt.Errorf("failed to count donations: %w", err)
	}
	return n, nil
}

// Update applies set to one donation request
func (r *MongoRepository) Update(ctx context.Context, id bson.ObjectID, set bson.D) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("failed to update donation: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrDonationNotFound
	}
	return nil
}

// Delete removes one donation request
func (r *MongoRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete donation: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrDonationNotFound
	}
	return nil
}
