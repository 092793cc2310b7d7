package session

import (
	"context"
	"sync/atomic"
	"time"
)

var t0 = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

// testClock is a manually advanced clock
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: t0}
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// recordingStore counts calls and can inject failures
type recordingStore struct {
	*MemoryStore

	inserts atomic.Int32
	finds   atomic.Int32
	deletes atomic.Int32

	insertErr error
	findErr   error
	deleteErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore()}
}

func (s *recordingStore) Insert(ctx context.Context, sess *Session) error {
	s.inserts.Add(1)
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.MemoryStore.Insert(ctx, sess)
}

func (s *recordingStore) FindByID(ctx context.Context, id string) (*Session, error) {
	s.finds.Add(1)
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryStore.FindByID(ctx, id)
}

func (s *recordingStore) Delete(ctx context.Context, id string) (bool, error) {
	s.deletes.Add(1)
	if s.deleteErr != nil {
		return false, s.deleteErr
	}
	return s.MemoryStore.Delete(ctx, id)
}

func (s *recordingStore) calls() int32 {
	return s.inserts.Load() + s.finds.Load() + s.deletes.Load()
}
