package blog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// PostCacheTTL is how long a single post stays cached
const PostCacheTTL = 5 * time.Minute

// InvalidationHold is how long a written post blocks cache write-back.
// A read that fetched the old document before the write and finishes
// within this window cannot repopulate the cache with it.
const InvalidationHold = 10 * time.Second

const defaultStatus = "draft"

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidID     = errors.New("invalid post id")
	ErrNoUpdates     = errors.New("no updates provided")
)

// Service handles blog posts with an optional Redis cache for single posts
type Service struct {
	repo  Repository
	cache *redis.Client
	now   func() time.Time
}

// NewService creates a new blog service. cache may be nil to disable caching.
func NewService(repo Repository, cache *redis.Client) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

func cacheKey(id bson.ObjectID) string {
	return "post:" + id.Hex()
}

// Create stores a new post
func (s *Service) Create(ctx context.Context, req CreatePostRequest) (string, error) {
	if req.Title == "" || req.Content == "" {
		return "", ErrMissingFields
	}

	status := req.Status
	if status == "" {
		status = defaultStatus
	}

	id, err := s.repo.Create(ctx, &Post{
		Title:     req.Title,
		Content:   req.Content,
		Picture:   req.Picture,
		Status:    status,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

// Get retrieves a post by id, consulting the cache first
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey(oid)).Bytes()
		if err == nil {
			// an empty value marks a recent write
			var post Post
			if len(cached) > 0 && json.Unmarshal(cached, &post) == nil {
				slog.Debug("Cache hit for post", "post_id", id)
				return &post, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			slog.Warn("Post cache read failed", "post_id", id, "error", err.Error())
		}
	}

	post, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		data, err := json.Marshal(post)
		if err == nil {
			if err := s.cache.SetNX(ctx, cacheKey(oid), data, PostCacheTTL).Err(); err != nil {
				slog.Warn("Post cache write failed", "post_id", id, "error", err.Error())
			}
		}
	}

	return post, nil
}

// List returns every post
func (s *Service) List(ctx context.Context) ([]Post, error) {
	return s.repo.List(ctx)
}

// Update writes the provided fields and updatedAt, then drops the cached copy
func (s *Service) Update(ctx context.Context, id string, req UpdatePostRequest) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	set := req.SetDocument()
	if len(set) == 0 {
		return ErrNoUpdates
	}
	set = append(set, bson.E{Key: "updatedAt", Value: s.now().UTC()})

	if err := s.repo.Update(ctx, oid, set); err != nil {
		return err
	}

	s.invalidate(ctx, oid)
	return nil
}

// Delete removes a post and drops the cached copy
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, oid); err != nil {
		return err
	}

	s.invalidate(ctx, oid)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id bson.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(context.WithoutCancel(ctx), cacheKey(id), "", InvalidationHold).Err(); err != nil {
		slog.Warn("Post cache invalidation failed", "post_id", id.Hex(), "error", err.Error())
	}
}
