package donations

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Donation statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "inprogress"
	StatusDone       = "done"
	StatusCanceled   = "canceled"
)

// ErrInvalidDate is returned when donationDate is neither a date nor an RFC 3339 timestamp
var ErrInvalidDate = errors.New("invalid donation date")

// Donation is a blood donation request
type Donation struct {
	ID                bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	RequesterName     string        `bson:"requesterName" json:"requesterName"`
	RequesterEmail    string        `bson:"requesterEmail" json:"requesterEmail"`
	RecipientName     string        `bson:"recipientName" json:"recipientName"`
	RecipientDistrict string        `bson:"recipientDistrict" json:"recipientDistrict"`
	RecipientUpazila  string        `bson:"recipientUpazila,omitempty" json:"recipientUpazila,omitempty"`
	HospitalName      string        `bson:"hospitalName" json:"hospitalName"`
	FullAddress       string        `bson:"fullAddress,omitempty" json:"fullAddress,omitempty"`
	BloodGroup        string        `bson:"bloodGroup" json:"bloodGroup"`
	DonationDate      time.Time     `bson:"donationDate" json:"donationDate"`
	DonationTime      string        `bson:"donationTime" json:"donationTime"`
	RequestMessage    string        `bson:"requestMessage" json:"requestMessage"`
	DonationStatus    string        `bson:"donationStatus" json:"donationStatus"`
	DonorName         string        `bson:"donorName,omitempty" json:"donorName,omitempty"`
	DonorEmail        string        `bson:"donorEmail,omitempty" json:"donorEmail,omitempty"`
	CreatedAt         time.Time     `bson:"createdAt" json:"createdAt"`
}

// CreateDonationRequest is the body of POST /createDonation
type CreateDonationRequest struct {
	RequesterName     string `json:"requesterName"`
	RequesterEmail    string `json:"requesterEmail" binding:"omitempty,email"`
	RecipientName     string `json:"recipientName"`
	RecipientDistrict string `json:"recipientDistrict"`
	RecipientUpazila  string `json:"recipientUpazila"`
	HospitalName      string `json:"hospitalName"`
	FullAddress       string `json:"fullAddress"`
	BloodGroup        string `json:"bloodGroup" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	DonationDate      string `json:"donationDate"`
	DonationTime      string `json:"donationTime"`
	RequestMessage    string `json:"requestMessage"`
	DonationStatus    string `json:"donationStatus" binding:"omitempty,oneof=pending inprogress done canceled"`
}

// missingRequired reports whether any required field is empty
func (r CreateDonationRequest) missingRequired() bool {
	for _, v := range []string{
		r.RequesterName, r.RequesterEmail, r.RecipientName, r.RecipientDistrict,
		r.HospitalName, r.BloodGroup, r.DonationDate, r.DonationTime, r.RequestMessage,
	} {
		if v == "" {
			return true
		}
	}
	return false
}

// UpdateDonationRequest lists the fields a PATCH may change
type UpdateDonationRequest struct {
	RequesterName     *string `json:"requesterName" binding:"omitempty,min=1"`
	RequesterEmail    *string `json:"requesterEmail" binding:"omitempty,email"`
	RecipientName     *string `json:"recipientName" binding:"omitempty,min=1"`
	RecipientDistrict *string `json:"recipientDistrict" binding:"omitempty,min=1"`
	RecipientUpazila  *string `json:"recipientUpazila"`
	HospitalName      *string `json:"hospitalName" binding:"omitempty,min=1"`
	FullAddress       *string `json:"fullAddress"`
	BloodGroup        *string `json:"bloodGroup" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	DonationDate      *string `json:"donationDate"`
	DonationTime      *string `json:"donationTime" binding:"omitempty,min=1"`
	RequestMessage    *string `json:"requestMessage" binding:"omitempty,min=1"`
	DonationStatus    *string `json:"donationStatus" binding:"omitempty,oneof=pending inprogress done canceled"`
	DonorName         *string `json:"donorName"`
	DonorEmail        *string `json:"donorEmail" binding:"omitempty,email"`
}

// SetDocument returns the $set document for the provided fields
func (r UpdateDonationRequest) SetDocument() (bson.D, error) {
	var set bson.D
	add := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}
	add("requesterName", r.RequesterName)
	add("requesterEmail", r.RequesterEmail)
	add("recipientName", r.RecipientName)
	add("recipientDistrict", r.RecipientDistrict)
	add("recipientUpazila", r.RecipientUpazila)
	add("hospitalName", r.HospitalName)
	add("fullAddress", r.FullAddress)
	add("bloodGroup", r.BloodGroup)
	if r.DonationDate != nil {
		date, err := ParseDonationDate(*r.DonationDate)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: "donationDate", Value: date})
	}
	add("donationTime", r.DonationTime)
	add("requestMessage", r.RequestMessage)
	add("donationStatus", r.DonationStatus)
	add("donorName", r.DonorName)
	add("donorEmail", r.DonorEmail)
	return set, nil
}

// ParseDonationDate accepts "2006-01-02" or an RFC 3339 timestamp
func ParseDonationDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.UTC(), nil
}

// Filter narrows donation listings. Empty fields match everything.
type Filter struct {
	RequesterEmail    string
	RecipientDistrict string
	BloodGroup        string
	Status            string
}

func (f Filter) document() bson.D {
	doc := bson.D{}
	if f.RequesterEmail != "" {
		doc = append(doc, bson.E{Key: "requesterEmail", Value: f.RequesterEmail})
	}
	if f.RecipientDistrict != "" {
		doc = append(doc, bson.E{Key: "recipientDistrict", Value: f.RecipientDistrict})
	}
	if f.BloodGroup != "" {
		doc = append(doc, bson.E{Key: "bloodGroup", Value: f.BloodGroup})
	}
	if f.Status != "" {
		doc = append(doc, bson.E{Key: "donationStatus", Value: f.Status})
	}
	return doc
}

// CursorPage is the response of the cursor listing
type CursorPage struct {
	Donations  []Donation `json:"donations"`
	NextCursor *int64     `json:"nextCursor"`
}

// Page is the response of the page listing
type Page struct {
	Donations        []Donation `json:"donations"`
	TotalDonations   int64      `json:"totalDonations"`
	TotalPages       int64      `json:"totalPages"`
	CurrentPage      int64      `json:"currentPage"`
	DonationsPerPage int64      `json:"donationsPerPage"`
}
