package biz

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"autoposter/internal/conf"
	"autoposter/internal/pkg/color"
	"autoposter/internal/pkg/hash"

	"github.com/go-kratos/kratos/v2/log"
)

// nearDuplicateCutoff is the pHash Hamming distance at or below which two
// images are flagged as near-duplicates. They are still indexed; only an
// identical content hash rejects a file.
const nearDuplicateCutoff = 8

// Image is one indexed picture.
type Image struct {
	ID          int64
	Filename    string
	ContentHash string
	PHash       uint64
	Color       color.Lab
	IndexedAt   time.Time
	PostedAt    *time.Time
	PostID      *int64
}

// Posted reports whether the image left the pool.
func (i *Image) Posted() bool {
	return i.PostedAt != nil
}

// ImageRepo is the image index storage. It is the only writer of
// posted_at/post_id.
type ImageRepo interface {
	// Create inserts a new image. Returns ErrDuplicateImage when the content
	// hash is already present.
	Create(ctx context.Context, img *Image) (*Image, error)
	// ExistsByHash reports whether a content hash is already indexed.
	ExistsByHash(ctx context.Context, contentHash string) (bool, error)
	// RandomUnposted picks a uniformly random unposted image, optionally
	// excluding one id. Returns ErrPoolExhausted when none remain.
	RandomUnposted(ctx context.Context, excludeID int64) (*Image, error)
	// ListAll returns every image regardless of posted state.
	ListAll(ctx context.Context) ([]*Image, error)
	// ListContentHashes returns every indexed content hash.
	ListContentHashes(ctx context.Context) ([]string, error)
	// ListPHashes returns every recorded perceptual hash.
	ListPHashes(ctx context.Context) ([]uint64, error)
	// MarkPosted sets posted_at/post_id exactly once. A second call returns
	// ErrAlreadyPosted.
	MarkPosted(ctx context.Context, id, postID int64, at time.Time) error
	// FindByPostID resolves a channel post back to its image.
	FindByPostID(ctx context.Context, postID int64) (*Image, error)
	// CountAll returns the number of indexed images.
	CountAll(ctx context.Context) (int64, error)
	// CountPostedSince counts images posted at or after the given time.
	CountPostedSince(ctx context.Context, since time.Time) (int64, error)
	// LastPostedAt returns the most recent posted_at, or nil if nothing was
	// posted yet.
	LastPostedAt(ctx context.Context) (*time.Time, error)
}

// DedupFilter is a probabilistic pre-check over content hashes. A negative
// answer is trusted (the filter is seeded from the index at startup); a
// positive one is confirmed against storage.
type DedupFilter interface {
	Add(ctx context.Context, data []byte) error
	Exists(ctx context.Context, data []byte) (bool, error)
}

// IndexStats summarizes the index for the insights command.
type IndexStats struct {
	Total        int64
	PostedToday  int64
	LastPostedAt *time.Time
}

// IndexReport is the outcome of a directory scan.
type IndexReport struct {
	Indexed    int
	Duplicates int
	Failed     int
}

// IndexUsecase adds images to the index: content hashing, deduplication,
// dominant color extraction and perceptual hashing.
type IndexUsecase struct {
	repo      ImageRepo
	filter    DedupFilter
	hasher    *hash.Sha256Hasher
	phasher   *hash.PerceptualHasher
	extractor *color.Extractor
	now       func() time.Time
	log       *log.Helper
}

// NewIndexUsecase creates an IndexUsecase.
func NewIndexUsecase(repo ImageRepo, filter DedupFilter, pc *conf.Posting, logger log.Logger) *IndexUsecase {
	return &IndexUsecase{
		repo:      repo,
		filter:    filter,
		hasher:    hash.NewSha256Hasher(),
		phasher:   hash.NewPerceptualHasher(),
		extractor: color.NewExtractor(pc.ColorQuality),
		now:       time.Now,
		log:       log.NewHelper(logger),
	}
}

// AddToIndex indexes the image file at path. Returns ErrDuplicateImage when
// the file's content hash is already known; nothing is written in that case.
func (uc *IndexUsecase) AddToIndex(ctx context.Context, path string) (*Image, error) {
	sum, err := uc.hasher.ComputeFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	dup, err := uc.seenBefore(ctx, sum.Hash)
	if err != nil {
		return nil, err
	}
	if dup {
		uc.log.Debugf("attempted to add existing image to index, skipping: %s", path)
		return nil, ErrDuplicateImage
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	dominant := uc.extractor.Dominant(img)

	var phash uint64
	if ph, err := uc.phasher.ComputePHash(img); err != nil {
		uc.log.Warnf("pHash failed for %s: %v", path, err)
	} else {
		phash = ph.Hash
		uc.warnNearDuplicate(ctx, path, phash)
	}

	created, err := uc.repo.Create(ctx, &Image{
		Filename:    path,
		ContentHash: sum.Hash,
		PHash:       phash,
		Color:       dominant,
		IndexedAt:   uc.now(),
	})
	if err != nil {
		// A concurrent worker may have indexed the same content between the
		// pre-check and the insert; the unique constraint settles it.
		return nil, err
	}

	if err := uc.filter.Add(ctx, []byte(sum.Hash)); err != nil {
		uc.log.Warnf("bloom add failed for %s: %v", sum.Hash, err)
	}

	return created, nil
}

// seenBefore answers the dedup question, consulting the bloom filter first.
func (uc *IndexUsecase) seenBefore(ctx context.Context, contentHash string) (bool, error) {
	maybe, err := uc.filter.Exists(ctx, []byte(contentHash))
	if err != nil {
		uc.log.Warnf("bloom check failed, falling back to storage: %v", err)
		return uc.repo.ExistsByHash(ctx, contentHash)
	}
	if !maybe {
		return false, nil
	}
	return uc.repo.ExistsByHash(ctx, contentHash)
}

func (uc *IndexUsecase) warnNearDuplicate(ctx context.Context, path string, phash uint64) {
	known, err := uc.repo.ListPHashes(ctx)
	if err != nil {
		uc.log.Warnf("pHash scan failed: %v", err)
		return
	}
	for _, other := range known {
		if other == 0 {
			continue
		}
		if hash.IsNearDuplicate(phash, other, nearDuplicateCutoff) {
			uc.log.Warnf("%s looks like a near-duplicate (pHash distance <= %d), indexing anyway",
				path, nearDuplicateCutoff)
			return
		}
	}
}

// IndexDirectory walks dir recursively and indexes every file, fanning out
// across a bounded worker pool. Duplicates are counted, not treated as
// failures.
func (uc *IndexUsecase) IndexDirectory(ctx context.Context, dir string) (*IndexReport, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	workers := runtime.NumCPU()
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		report IndexReport
		wg     sync.WaitGroup
		sem    = make(chan struct{}, workers)
	)

	for _, file := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			_, err := uc.AddToIndex(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Indexed++
			case isDuplicate(err):
				report.Duplicates++
			default:
				report.Failed++
				uc.log.Warnf("indexing %s failed: %v", path, err)
			}
		}(file)
	}
	wg.Wait()

	uc.log.Infof("indexing finished: %d new, %d duplicates, %d failed",
		report.Indexed, report.Duplicates, report.Failed)
	return &report, nil
}

// FindByPostID resolves a channel post id back to the indexed image, or nil
// when the post is not one of ours.
func (uc *IndexUsecase) FindByPostID(ctx context.Context, postID int64) (*Image, error) {
	return uc.repo.FindByPostID(ctx, postID)
}

// Stats collects the numbers shown by the insights command.
func (uc *IndexUsecase) Stats(ctx context.Context) (*IndexStats, error) {
	total, err := uc.repo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	today, err := uc.repo.CountPostedSince(ctx, uc.now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	last, err := uc.repo.LastPostedAt(ctx)
	if err != nil {
		return nil, err
	}
	return &IndexStats{Total: total, PostedToday: today, LastPostedAt: last}, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateImage)
}

// listFiles collects all regular files under dir, recursively.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
