package biz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"autoposter/internal/conf"
	"autoposter/internal/pkg/color"

	"github.com/go-kratos/kratos/v2/log"
)

// PostMode selects what kind of post to produce.
type PostMode string

const (
	// ModeAuto lets the pipeline decide between single and compilation.
	ModeAuto PostMode = ""
	// ModeSingle posts one random unposted image.
	ModeSingle PostMode = "single"
	// ModeCompilation posts a set of color-similar images as one album.
	ModeCompilation PostMode = "compilation"
)

// compilationChance routes a uniform draw in [0,100) to the compilation path
// when the draw is <= this value. The boundary is inclusive on purpose.
const compilationChance = 30

// similarityCutoff is the CIEDE2000 delta below which two dominant colors
// read as "perceptibly similar but not identical".
const similarityCutoff = 14.0

// Publisher sends posts outward and raises operator alerts. Implementations
// block on network I/O, so usecases call it only after repository calls have
// returned.
type Publisher interface {
	// SendPhoto posts one image file, returning the new post id.
	SendPhoto(ctx context.Context, path string) (int64, error)
	// SendAlbum posts the files as a single grouped post, returning the
	// shared group id.
	SendAlbum(ctx context.Context, paths []string) (int64, error)
	// UpdateLikeButton (re-)renders the like affordance under a post.
	UpdateLikeButton(ctx context.Context, postID, count int64) error
	// NotifyOperator delivers a plain-text alert to the operator contact.
	NotifyOperator(ctx context.Context, text string) error
}

// PostingUsecase decides what to post, selects images and coordinates the
// send with the index state.
type PostingUsecase struct {
	images   ImageRepo
	pub      Publisher
	poolSize int
	draw     func() int
	now      func() time.Time
	log      *log.Helper
}

// NewPostingUsecase creates a PostingUsecase.
func NewPostingUsecase(repo ImageRepo, pub Publisher, pc *conf.Posting, logger log.Logger) *PostingUsecase {
	return &PostingUsecase{
		images:   repo,
		pub:      pub,
		poolSize: pc.CompilationPoolSize,
		draw:     func() int { return rand.Intn(100) },
		now:      time.Now,
		log:      log.NewHelper(logger),
	}
}

// Post produces one channel post. With ModeAuto the type is decided by a
// uniform draw in [0,100): values up to and including 30 yield a compilation.
// ErrPoolExhausted aborts only this attempt; the operator is notified before
// it propagates.
func (uc *PostingUsecase) Post(ctx context.Context, mode PostMode) error {
	if mode == ModeAuto {
		if uc.draw() <= compilationChance {
			mode = ModeCompilation
		} else {
			mode = ModeSingle
		}
	}

	var err error
	switch mode {
	case ModeCompilation:
		err = uc.postCompilation(ctx)
	case ModeSingle:
		err = uc.postSingle(ctx)
	default:
		return fmt.Errorf("unknown post mode %q", mode)
	}

	if errors.Is(err, ErrPoolExhausted) {
		if nerr := uc.pub.NotifyOperator(ctx, "Out of pictures: the unposted pool is empty"); nerr != nil {
			uc.log.Errorf("operator alert failed: %v", nerr)
		}
	}
	return err
}

// SelectCompilation picks a random unposted reference image and returns all
// images whose dominant color sits within (0, 14) CIEDE2000 units of it,
// scanning the entire population. At most two attempts are made; the second
// uses a fresh reference and excludes the first one. On the second attempt a
// non-empty result of any size is returned, an empty one escalates to
// ErrPoolExhausted.
func (uc *PostingUsecase) SelectCompilation(ctx context.Context, poolSize int) ([]*Image, error) {
	var excludeID int64

	for attempt := 0; attempt < 2; attempt++ {
		ref, err := uc.images.RandomUnposted(ctx, excludeID)
		if err != nil {
			return nil, err
		}

		all, err := uc.images.ListAll(ctx)
		if err != nil {
			return nil, err
		}

		var result []*Image
		for _, cand := range all {
			delta := color.DeltaE(ref.Color, cand.Color)
			// Exact zero is the reference itself or a color-identical twin.
			if delta > 0 && delta < similarityCutoff {
				result = append(result, cand)
				if len(result) == poolSize {
					break
				}
			}
		}

		if len(result) >= 2 {
			return result, nil
		}
		if attempt == 1 && len(result) > 0 {
			return result, nil
		}
		excludeID = ref.ID
	}

	return nil, ErrPoolExhausted
}

func (uc *PostingUsecase) postCompilation(ctx context.Context) error {
	set, err := uc.SelectCompilation(ctx, uc.poolSize)
	if err != nil {
		return err
	}

	// A thin pool can leave a single survivor; albums need at least two
	// members, so it goes out as a regular single post. The selector scans
	// the whole population, so the survivor may already be posted; a fresh
	// draw avoids republishing it.
	if len(set) == 1 {
		if set[0].Posted() {
			return uc.postSingle(ctx)
		}
		return uc.postImage(ctx, set[0])
	}

	paths := make([]string, len(set))
	for i, img := range set {
		paths[i] = img.Filename
	}

	groupID, err := uc.pub.SendAlbum(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to send compilation: %w", err)
	}

	for _, img := range set {
		if err := uc.images.MarkPosted(ctx, img.ID, groupID, uc.now()); err != nil {
			// The selector scans the whole population, so a member may have
			// been posted before; its original posted state wins.
			if errors.Is(err, ErrAlreadyPosted) {
				continue
			}
			uc.log.Errorf("failed to mark image %d posted: %v", img.ID, err)
		}
	}
	return nil
}

func (uc *PostingUsecase) postSingle(ctx context.Context) error {
	img, err := uc.images.RandomUnposted(ctx, 0)
	if err != nil {
		return err
	}
	return uc.postImage(ctx, img)
}

func (uc *PostingUsecase) postImage(ctx context.Context, img *Image) error {
	postID, err := uc.pub.SendPhoto(ctx, img.Filename)
	if err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}

	if err := uc.pub.UpdateLikeButton(ctx, postID, 0); err != nil {
		uc.log.Warnf("failed to attach like button to post %d: %v", postID, err)
	}

	return uc.images.MarkPosted(ctx, img.ID, postID, uc.now())
}
