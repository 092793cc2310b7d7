// Package session issues, validates and revokes server-side sessions that
// are referenced from the client by the "session" cookie. Sessions have a
// fixed absolute lifetime and are never renewed.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodlink/internal/metrics"
)

// TTL is the fixed lifetime of every session
const TTL = 24 * time.Hour

var (
	// ErrSessionNotFound is returned when no record matches the session id
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the record exists but its lifetime has passed
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidSession is returned when a session cannot be created for the given input
	ErrInvalidSession = errors.New("invalid session")
	// ErrDuplicateID is returned by a Store when the session id is already taken
	ErrDuplicateID = errors.New("session id already exists")
)

// Manager defines the session lifecycle operations
type Manager interface {
	// Create persists a new session for userID
	Create(ctx context.Context, userID string) (*Session, error)
	// Validate returns the session if it exists and has not expired
	Validate(ctx context.Context, sessionID string) (*Session, error)
	// Destroy deletes the session. Expired sessions can be destroyed too.
	Destroy(ctx context.Context, sessionID string) error
	// Discard removes a session that was never handed to the client.
	// It is not counted as a destroyed session.
	Discard(ctx context.Context, sessionID string) error
}

// Option configures a manager
type Option func(*manager)

// WithClock replaces the wall clock used for timestamps and expiry checks
func WithClock(now func() time.Time) Option {
	return func(m *manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator replaces the session id generator
func WithIDGenerator(gen func() (string, error)) Option {
	return func(m *manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithMetrics records session counters on m
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *manager) {
		m.metrics = mt
	}
}

// manager implements Manager on top of a Store
type manager struct {
	store   Store
	now     func() time.Time
	newID   func() (string, error)
	metrics *metrics.Metrics
}

// NewManager creates a new session manager
func NewManager(store Store, opts ...Option) Manager {
	m := &manager{
		store: store,
		now:   time.Now,
		newID: GenerateID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create generates an id, stamps the record and persists it
func (m *manager) Create(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidSession)
	}

	sessionID, err := m.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	// Stored timestamps have millisecond precision
	now := m.now().UTC().Truncate(time.Millisecond)
	sess := &Session{
		ID:             sessionID,
		UserID:         userID,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(TTL),
	}

	if err := m.store.Insert(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	m.metrics.SessionCreated()
	return sess, nil
}

// Validate looks the session up and applies the expiry predicate
func (m *manager) Validate(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	sess, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.ExpiredAt(m.now()) {
		return nil, ErrSessionExpired
	}

	return sess, nil
}

// Destroy removes the session record
func (m *manager) Destroy(ctx context.Context, sessionID string) error {
	if err := m.remove(ctx, sessionID); err != nil {
		return err
	}

	m.metrics.SessionDestroyed()
	return nil
}

// Discard removes the session record without touching the counters
func (m *manager) Discard(ctx context.Context, sessionID string) error {
	return m.remove(ctx, sessionID)
}

func (m *manager) remove(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionNotFound
	}

	deleted, err := m.store.Delete(ctx, sessionID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSessionNotFound
	}
	return nil
}
