package blog

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Post is a blog post
type Post struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title     string        `bson:"title" json:"title"`
	Content   string        `bson:"content" json:"content"`
	Picture   string        `bson:"picture,omitempty" json:"picture,omitempty"`
	Status    string        `bson:"status" json:"status"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt *time.Time    `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// CreatePostRequest is the body of POST /createPost
type CreatePostRequest struct {
	Title   string `json:"title" binding:"max=300"`
	Content string `json:"content"`
	Picture string `json:"picture"`
	Status  string `json:"status" binding:"omitempty,oneof=draft published"`
}

// UpdatePostRequest lists the fields a PATCH may change
type UpdatePostRequest struct {
	Title   *string `json:"title" binding:"omitempty,min=1,max=300"`
	Content *string `json:"content" binding:"omitempty,min=1"`
	Picture *string `json:"picture"`
	Status  *string `json:"status" binding:"omitempty,oneof=draft published"`
}

// SetDocument returns the $set document for the provided fields
func (r UpdatePostRequest) SetDocument() bson.D {
	var set bson.D
	add := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}
	add("title", r.Title)
	add("content", r.Content)
	add("picture", r.Picture)
	add("status", r.Status)
	return set
}
