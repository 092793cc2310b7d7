package users

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is a donor, volunteer or admin account
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID       string        `bson:"userId,omitempty" json:"userId,omitempty"`
	Name         string        `bson:"name" json:"name"`
	Picture      string        `bson:"picture,omitempty" json:"picture,omitempty"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"password" json:"-"`
	BloodGroup   string        `bson:"bloodGroup,omitempty" json:"bloodGroup,omitempty"`
	District     string        `bson:"district,omitempty" json:"district,omitempty"`
	Upazilla     string        `bson:"upazilla,omitempty" json:"upazilla,omitempty"`
	Role         string        `bson:"role,omitempty" json:"role,omitempty"`
	Status       string        `bson:"status,omitempty" json:"status,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
}

// CreateUserRequest is the body of POST /createUsers. Name, email and
// password are checked separately so the handler can report them together.
type CreateUserRequest struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
	Email      string `json:"email" binding:"omitempty,email"`
	Password   string `json:"password"`
	BloodGroup string `json:"bloodGroup" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	District   string `json:"district"`
	Upazilla   string `json:"upazilla"`
	Role       string `json:"role" binding:"omitempty,oneof=donor volunteer admin"`
	Status     string `json:"status" binding:"omitempty,oneof=active blocked"`
}

// UpdateUserRequest lists the fields a PATCH may change. Email and password
// are deliberately absent.
type UpdateUserRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=1"`
	Picture    *string `json:"picture"`
	BloodGroup *string `json:"bloodGroup" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	District   *string `json:"district"`
	Upazilla   *string `json:"upazilla"`
	Role       *string `json:"role" binding:"omitempty,oneof=donor volunteer admin"`
	Status     *string `json:"status" binding:"omitempty,oneof=active blocked"`
}

// SetDocument returns the $set document for the provided fields
func (r UpdateUserRequest) SetDocument() bson.D {
	var set bson.D
	add := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}
	add("name", r.Name)
	add("picture", r.Picture)
	add("bloodGroup", r.BloodGroup)
	add("district", r.District)
	add("upazilla", r.Upazilla)
	add("role", r.Role)
	add("status", r.Status)
	return set
}

// UpdateResult reports how many documents an update touched
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}
