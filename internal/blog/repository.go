package blog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var ErrPostNotFound = errors.New("post not found")

// Repository persists blog posts
type Repository interface {
	Create(ctx context.Context, p *Post) (bson.ObjectID, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*Post, error)
	List(ctx context.Context) ([]Post, error)
	Update(ctx context.Context, id bson.ObjectID, set bson.D) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

// MongoRepository stores posts in a MongoDB collection
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over the posts collection
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// EnsureIndexes backs the newest-first listing
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}
	return nil
}

// Create inserts a post
func (r *MongoRepository) Create(ctx context.Context, p *Post) (bson.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("failed to insert post: %w", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return bson.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

// GetByID returns one post
func (r *MongoRepository) GetByID(ctx context.Context, id bson.ObjectID) (*Post, error) {
	var p Post
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return &p, nil
}

// List returns every post, newest first
func (r *MongoRepository) List(ctx context.Context) ([]Post, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	posts := []Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}

// Update applies set to one post
func (r *MongoRepository) Update(ctx context.Context, id bson.ObjectID, set bson.D) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Delete removes one post
func (r *MongoRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}
