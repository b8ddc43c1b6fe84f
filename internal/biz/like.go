package biz

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// Like is one user's like of one post. Identity is (UserID, PostID).
type Like struct {
	ID        int64
	UserID    int64
	PostID    int64
	MediaID   int64
	CreatedAt time.Time
}

// LikeRepo owns like records.
type LikeRepo interface {
	// Find returns the active like for (userID, postID), or nil when there
	// is none.
	Find(ctx context.Context, userID, postID int64) (*Like, error)
	// Create stores a new like.
	Create(ctx context.Context, like *Like) error
	// Delete removes a like permanently.
	Delete(ctx context.Context, id int64) error
	// CountByPost returns the number of active likes on a post.
	CountByPost(ctx context.Context, postID int64) (int64, error)
}

// CountCache caches per-post like counts for button rendering.
type CountCache interface {
	SetCount(ctx context.Context, postID, count int64) error
	// GetCount returns (count, true) on a hit.
	GetCount(ctx context.Context, postID int64) (int64, bool, error)
}

// LikeUsecase toggles likes and keeps the display count current.
type LikeUsecase struct {
	repo  LikeRepo
	cache CountCache
	now   func() time.Time
	log   *log.Helper
}

// NewLikeUsecase creates a LikeUsecase.
func NewLikeUsecase(repo LikeRepo, cache CountCache, logger log.Logger) *LikeUsecase {
	return &LikeUsecase{
		repo:  repo,
		cache: cache,
		now:   time.Now,
		log:   log.NewHelper(logger),
	}
}

// Toggle flips the like state for (userID, postID) and returns the fresh
// count for the post. mediaID ties the like back to the image for
// traceability; counting is by post id.
func (uc *LikeUsecase) Toggle(ctx context.Context, userID, postID, mediaID int64) (int64, error) {
	existing, err := uc.repo.Find(ctx, userID, postID)
	if err != nil {
		return 0, err
	}

	if existing != nil {
		if err := uc.repo.Delete(ctx, existing.ID); err != nil {
			return 0, err
		}
	} else {
		err := uc.repo.Create(ctx, &Like{
			UserID:    userID,
			PostID:    postID,
			MediaID:   mediaID,
			CreatedAt: uc.now(),
		})
		if err != nil {
			return 0, err
		}
	}

	count, err := uc.repo.CountByPost(ctx, postID)
	if err != nil {
		return 0, err
	}

	if err := uc.cache.SetCount(ctx, postID, count); err != nil {
		uc.log.Warnf("like count cache write failed for post %d: %v", postID, err)
	}
	return count, nil
}

// Count returns the display count for a post, preferring the cache.
func (uc *LikeUsecase) Count(ctx context.Context, postID int64) (int64, error) {
	if count, ok, err := uc.cache.GetCount(ctx, postID); err == nil && ok {
		return count, nil
	}

	count, err := uc.repo.CountByPost(ctx, postID)
	if err != nil {
		return 0, err
	}
	if err := uc.cache.SetCount(ctx, postID, count); err != nil {
		uc.log.Warnf("like count cache write failed for post %d: %v", postID, err)
	}
	return count, nil
}
