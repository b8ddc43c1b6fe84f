package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autoposter/internal/biz"
	pkgredis "autoposter/internal/pkg/redis"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
)

type likeRepo struct {
	data *Data
	log  *log.Helper
}

// NewLikeRepo creates a new LikeRepo.
func NewLikeRepo(data *Data, logger log.Logger) biz.LikeRepo {
	return &likeRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Find implements biz.LikeRepo.
func (r *likeRepo) Find(ctx context.Context, userID, postID int64) (*biz.Like, error) {
	var like biz.Like
	err := r.data.Pool.QueryRow(ctx, `
		SELECT id, user_id, post_id, media_id, created_at
		FROM likes
		WHERE user_id = $1 AND post_id = $2`,
		userID, postID,
	).Scan(&like.ID, &like.UserID, &like.PostID, &like.MediaID, &like.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return &like, nil
}

// Create implements biz.LikeRepo.
func (r *likeRepo) Create(ctx context.Context, like *biz.Like) error {
	return r.data.Pool.QueryRow(ctx, `
		INSERT INTO likes (user_id, post_id, media_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		like.UserID, like.PostID, like.MediaID, like.CreatedAt,
	).Scan(&like.ID)
}

// Delete implements biz.LikeRepo.
func (r *likeRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.data.Pool.Exec(ctx, `DELETE FROM likes WHERE id = $1`, id)
	return err
}

// CountByPost implements biz.LikeRepo.
func (r *likeRepo) CountByPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := r.data.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID,
	).Scan(&count)
	return count, err
}

// likeCountCacheTTL bounds staleness; the database recount on every toggle
// refreshes the entry long before it expires.
const likeCountCacheTTL = 24 * time.Hour

type likeCountCache struct {
	cache pkgredis.Cache
}

// NewLikeCountCache creates the redis-backed like count cache.
func NewLikeCountCache(cache pkgredis.Cache) biz.CountCache {
	return &likeCountCache{cache: cache}
}

func likeCountKey(postID int64) string {
	return fmt.Sprintf("likes:%d", postID)
}

// SetCount implements biz.CountCache.
func (c *likeCountCache) SetCount(ctx context.Context, postID, count int64) error {
	return c.cache.SetInt64(ctx, likeCountKey(postID), count, likeCountCacheTTL)
}

// GetCount implements biz.CountCache.
func (c *likeCountCache) GetCount(ctx context.Context, postID int64) (int64, bool, error) {
	count, err := c.cache.GetInt64(ctx, likeCountKey(postID))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return count, true, nil
}
