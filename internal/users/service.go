package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrNoUpdates     = errors.New("no updates provided")
)

// Service implements user operations on top of a Repository
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new users service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Create hashes the password and stores the user
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (string, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return "", ErrMissingFields
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		UserID:       req.UserID,
		Name:         req.Name,
		Picture:      req.Picture,
		Email:        req.Email,
		PasswordHash: hash,
		BloodGroup:   req.BloodGroup,
		District:     req.District,
		Upazilla:     req.Upazilla,
		Role:         req.Role,
		Status:       req.Status,
		CreatedAt:    s.now().UTC(),
	}

	return s.repo.Create(ctx, user)
}

// Get returns the user registered with email
func (s *Service) Get(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Update applies the provided fields to the user registered with email
func (s *Service) Update(ctx context.Context, email string, req UpdateUserRequest) (*UpdateResult, error) {
	set := req.SetDocument()
	if len(set) == 0 {
		return nil, ErrNoUpdates
	}
	return s.repo.UpdateByEmail(ctx, email, set)
}

// List returns every user
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}
