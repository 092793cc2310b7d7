package donations

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"bloodlink/internal/events"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidID     = errors.New("invalid donation id")
	ErrNoUpdates     = errors.New("no fields provided for update")
)

// Service implements donation request operations and emits lifecycle events
type Service struct {
	repo      Repository
	publisher events.Publisher
	now       func() time.Time
}

// NewService creates a new donations service. publisher may be nil.
func NewService(repo Repository, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// publish sends an event after the write it describes has been persisted.
// Failures are logged and otherwise ignored.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		slog.Warn("Failed to publish donation event",
			"type", event.Type,
			"donation_id", event.DonationID,
			"error", err.Error(),
		)
	}
}

// Create validates and stores a donation request
func (s *Service) Create(ctx context.Context, actorID string, req CreateDonationRequest) (string, error) {
	if req.missingRequired() {
		return "", ErrMissingFields
	}

	date, err := ParseDonationDate(req.DonationDate)
	if err != nil {
		return "", err
	}

	status := req.DonationStatus
	if status == "" {
		status = StatusPending
	}

	d := &Donation{
		RequesterName:     req.RequesterName,
		RequesterEmail:    req.RequesterEmail,
		RecipientName:     req.RecipientName,
		RecipientDistrict: req.RecipientDistrict,
		RecipientUpazila:  req.RecipientUpazila,
		HospitalName:      req.HospitalName,
		FullAddress:       req.FullAddress,
		BloodGroup:        req.BloodGroup,
		DonationDate:      date,
		DonationTime:      req.DonationTime,
		RequestMessage:    req.RequestMessage,
		DonationStatus:    status,
		CreatedAt:         s.now().UTC(),
	}

	id, err := s.repo.Create(ctx, d)
	if err != nil {
		return "", err
	}
	d.ID = id

	s.publish(ctx, events.New(events.DonationCreated, id.Hex(), actorID, d))
	return id.Hex(), nil
}

// Get returns one donation request
func (s *Service) Get(ctx context.Context, id string) (*Donation, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, oid)
}

// ListByCursor returns up to limit requests after skipping cursor of them.
// NextCursor is set only when a full page came back.
func (s *Service) ListByCursor(ctx context.Context, f Filter, cursor, limit int64) (*CursorPage, error) {
	donations, err := s.repo.Find(ctx, f, FindOptions{Skip: cursor, Limit: limit})
	if err != nil {
		return nil, err
	}

	page := &CursorPage{Donations: donations}
	if int64(len(donations)) == limit {
		next := cursor + limit
		page.NextCursor = &next
	}
	return page, nil
}

// ListByPage returns one page of requests, newest first. status is applied
// only when it names a known status.
func (s *Service) ListByPage(ctx context.Context, status string, page, limit int64) (*Page, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if page < 1 {
		page = 1
	}
	// keep (page-1)*limit within int64
	if maxPage := math.MaxInt64 / limit; page > maxPage {
		page = maxPage
	}

	var f Filter
	switch status {
	case StatusPending, StatusInProgress, StatusDone, StatusCanceled:
		f.Status = status
	}

	donations, err := s.repo.Find(ctx, f, FindOptions{
		Skip:        (page - 1) * limit,
		Limit:       limit,
		NewestFirst: true,
	})
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	return &Page{
		Donations:        donations,
		TotalDonations:   total,
		TotalPages:       (total + limit - 1) / limit,
		CurrentPage:      page,
		DonationsPerPage: limit,
	}, nil
}

// Update applies the provided fields to one donation request
func (s *Service) Update(ctx context.Context, actorID, id string, req UpdateDonationRequest) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	set, err := req.SetDocument()
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return ErrNoUpdates
	}

	if err := s.repo.Update(ctx, oid, set); err != nil {
		return err
	}

	changes := make(map[string]any, len(set))
	for _, e := range set {
		changes[e.Key] = e.Value
	}
	s.publish(ctx, events.New(events.DonationUpdated, oid.Hex(), actorID, changes))
	return nil
}

// Delete removes one donation request
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, oid); err != nil {
		return err
	}

	s.publish(ctx, events.New(events.DonationDeleted, oid.Hex(), actorID, nil))
	return nil
}
