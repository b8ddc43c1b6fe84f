package data

import (
	"context"
	"errors"
	"time"

	"autoposter/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type imageRepo struct {
	data *Data
	log  *log.Helper
}

// NewImageRepo creates a new ImageRepo.
func NewImageRepo(data *Data, logger log.Logger) biz.ImageRepo {
	return &imageRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

const imageColumns = `id, filename, content_hash, phash, color_l, color_a, color_b, indexed_at, posted_at, post_id`

// Create implements biz.ImageRepo.
func (r *imageRepo) Create(ctx context.Context, img *biz.Image) (*biz.Image, error) {
	err := r.data.Pool.QueryRow(ctx, `
		INSERT INTO images (filename, content_hash, phash, color_l, color_a, color_b, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		img.Filename, img.ContentHash, int64(img.PHash),
		img.Color.L, img.Color.A, img.Color.B, img.IndexedAt,
	).Scan(&img.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, biz.ErrDuplicateImage
		}
		return nil, err
	}
	return img, nil
}

// ExistsByHash implements biz.ImageRepo.
func (r *imageRepo) ExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	var exists bool
	err := r.data.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM images WHERE content_hash = $1)`,
		contentHash,
	).Scan(&exists)
	return exists, err
}

// RandomUnposted implements biz.ImageRepo.
func (r *imageRepo) RandomUnposted(ctx context.Context, excludeID int64) (*biz.Image, error) {
	row := r.data.Pool.QueryRow(ctx, `
		SELECT `+imageColumns+`
		FROM images
		WHERE posted_at IS NULL AND id <> $1
		ORDER BY random()
		LIMIT 1`,
		excludeID,
	)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, biz.ErrPoolExhausted
		}
		return nil, err
	}
	return img, nil
}

// ListAll implements biz.ImageRepo.
func (r *imageRepo) ListAll(ctx context.Context) ([]*biz.Image, error) {
	rows, err := r.data.Pool.Query(ctx,
		`SELECT `+imageColumns+` FROM images ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*biz.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ListContentHashes implements biz.ImageRepo.
func (r *imageRepo) ListContentHashes(ctx context.Context) ([]string, error) {
	rows, err := r.data.Pool.Query(ctx, `SELECT content_hash FROM images`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// ListPHashes implements biz.ImageRepo.
func (r *imageRepo) ListPHashes(ctx context.Context) ([]uint64, error) {
	rows, err := r.data.Pool.Query(ctx, `SELECT phash FROM images`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []uint64
	for rows.Next() {
		var h int64
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, uint64(h))
	}
	return hashes, rows.Err()
}

// MarkPosted implements biz.ImageRepo. The posted_at guard makes the update
// effect-once under concurrent posting attempts.
func (r *imageRepo) MarkPosted(ctx context.Context, id, postID int64, at time.Time) error {
	tag, err := r.data.Pool.Exec(ctx, `
		UPDATE images
		SET posted_at = $2, post_id = $3
		WHERE id = $1 AND posted_at IS NULL`,
		id, at, postID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return biz.ErrAlreadyPosted
	}
	return nil
}

// FindByPostID implements biz.ImageRepo.
func (r *imageRepo) FindByPostID(ctx context.Context, postID int64) (*biz.Image, error) {
	row := r.data.Pool.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE post_id = $1 LIMIT 1`,
		postID,
	)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return img, nil
}

// CountAll implements biz.ImageRepo.
func (r *imageRepo) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.data.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM images`).Scan(&count)
	return count, err
}

// CountPostedSince implements biz.ImageRepo.
func (r *imageRepo) CountPostedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.data.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM images WHERE posted_at >= $1`, since,
	).Scan(&count)
	return count, err
}

// LastPostedAt implements biz.ImageRepo.
func (r *imageRepo) LastPostedAt(ctx context.Context) (*time.Time, error) {
	var last *time.Time
	err := r.data.Pool.QueryRow(ctx, `SELECT MAX(posted_at) FROM images`).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

// scanImage reads one image row. phash travels as a signed bigint.
func scanImage(row pgx.Row) (*biz.Image, error) {
	var (
		img   biz.Image
		phash int64
	)
	err := row.Scan(
		&img.ID, &img.Filename, &img.ContentHash, &phash,
		&img.Color.L, &img.Color.A, &img.Color.B,
		&img.IndexedAt, &img.PostedAt, &img.PostID,
	)
	if err != nil {
		return nil, err
	}
	img.PHash = uint64(phash)
	return &img, nil
}
