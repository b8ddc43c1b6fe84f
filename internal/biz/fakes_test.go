package biz

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

func testLogger() log.Logger {
	return log.NewStdLogger(discard{})
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// fakeImageRepo is an in-memory ImageRepo. Random selection is deterministic:
// the first eligible image wins.
type fakeImageRepo struct {
	mu     sync.Mutex
	nextID int64
	images []*Image
}

func (r *fakeImageRepo) add(img *Image) *Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	img.ID = r.nextID
	r.images = append(r.images, img)
	return img
}

func (r *fakeImageRepo) Create(ctx context.Context, img *Image) (*Image, error) {
	r.mu.Lock()
	for _, existing := range r.images {
		if existing.ContentHash == img.ContentHash {
			r.mu.Unlock()
			return nil, ErrDuplicateImage
		}
	}
	r.mu.Unlock()
	return r.add(img), nil
}

func (r *fakeImageRepo) ExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if img.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeImageRepo) RandomUnposted(ctx context.Context, excludeID int64) (*Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if !img.Posted() && img.ID != excludeID {
			return img, nil
		}
	}
	return nil, ErrPoolExhausted
}

func (r *fakeImageRepo) ListAll(ctx context.Context) ([]*Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Image(nil), r.images...), nil
}

func (r *fakeImageRepo) ListContentHashes(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hashes := make([]string, len(r.images))
	for i, img := range r.images {
		hashes[i] = img.ContentHash
	}
	return hashes, nil
}

func (r *fakeImageRepo) ListPHashes(ctx context.Context) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hashes := make([]uint64, len(r.images))
	for i, img := range r.images {
		hashes[i] = img.PHash
	}
	return hashes, nil
}

func (r *fakeImageRepo) MarkPosted(ctx context.Context, id, postID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if img.ID == id {
			if img.Posted() {
				return ErrAlreadyPosted
			}
			img.PostedAt = &at
			img.PostID = &postID
			return nil
		}
	}
	return ErrAlreadyPosted
}

func (r *fakeImageRepo) FindByPostID(ctx context.Context, postID int64) (*Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if img.PostID != nil && *img.PostID == postID {
			return img, nil
		}
	}
	return nil, nil
}

func (r *fakeImageRepo) CountAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.images)), nil
}

func (r *fakeImageRepo) CountPostedSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, img := range r.images {
		if img.PostedAt != nil && !img.PostedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeImageRepo) LastPostedAt(ctx context.Context) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *time.Time
	for _, img := range r.images {
		if img.PostedAt != nil && (last == nil || img.PostedAt.After(*last)) {
			last = img.PostedAt
		}
	}
	return last, nil
}

// fakePublisher records outbound sends.
type fakePublisher struct {
	mu            sync.Mutex
	photos        []string
	albums        [][]string
	buttonEdits   []int64
	notifications []string

	nextPostID int64
	groupID    int64
}

func (p *fakePublisher) SendPhoto(ctx context.Context, path string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.photos = append(p.photos, path)
	p.nextPostID++
	return p.nextPostID, nil
}

func (p *fakePublisher) SendAlbum(ctx context.Context, paths []string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.albums = append(p.albums, paths)
	return p.groupID, nil
}

func (p *fakePublisher) UpdateLikeButton(ctx context.Context, postID, count int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buttonEdits = append(p.buttonEdits, postID)
	return nil
}

func (p *fakePublisher) NotifyOperator(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, text)
	return nil
}

// fakeDedupFilter is an exact in-memory stand-in for the bloom filter.
type fakeDedupFilter struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeDedupFilter() *fakeDedupFilter {
	return &fakeDedupFilter{seen: make(map[string]bool)}
}

func (f *fakeDedupFilter) Add(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[string(data)] = true
	return nil
}

func (f *fakeDedupFilter) Exists(ctx context.Context, data []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[string(data)], nil
}

// fakeLikeRepo is an in-memory LikeRepo.
type fakeLikeRepo struct {
	mu     sync.Mutex
	nextID int64
	likes  []*Like
}

func (r *fakeLikeRepo) Find(ctx context.Context, userID, postID int64) (*Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.likes {
		if l.UserID == userID && l.PostID == postID {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeLikeRepo) Create(ctx context.Context, like *Like) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	like.ID = r.nextID
	r.likes = append(r.likes, like)
	return nil
}

func (r *fakeLikeRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.likes {
		if l.ID == id {
			r.likes = append(r.likes[:i], r.likes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeLikeRepo) CountByPost(ctx context.Context, postID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.likes {
		if l.PostID == postID {
			n++
		}
	}
	return n, nil
}

// fakeCountCache is an in-memory CountCache.
type fakeCountCache struct {
	mu     sync.Mutex
	counts map[int64]int64
}

func newFakeCountCache() *fakeCountCache {
	return &fakeCountCache{counts: make(map[int64]int64)}
}

func (c *fakeCountCache) SetCount(ctx context.Context, postID, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[postID] = count
	return nil
}

func (c *fakeCountCache) GetCount(ctx context.Context, postID int64) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	count, ok := c.counts[postID]
	return count, ok, nil
}

// fakeSnapshotRepo is an in-memory SnapshotRepo.
type fakeSnapshotRepo struct {
	mu    sync.Mutex
	snaps []*SubscriberSnapshot
}

func (r *fakeSnapshotRepo) Append(ctx context.Context, snap *SubscriberSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap.ID = int64(len(r.snaps) + 1)
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *fakeSnapshotRepo) ListRecent(ctx context.Context, channelID int64, since time.Time) ([]*SubscriberSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*SubscriberSnapshot
	// Newest first, mirroring the SQL ORDER BY id DESC.
	for i := len(r.snaps) - 1; i >= 0; i-- {
		snap := r.snaps[i]
		if snap.ChannelID == channelID && !snap.CreatedAt.Before(since) {
			out = append(out, snap)
		}
	}
	return out, nil
}

// fakeMemberCounter returns a fixed member count.
type fakeMemberCounter struct {
	count int
}

func (c *fakeMemberCounter) MemberCount(ctx context.Context, channelID int64) (int, error) {
	return c.count, nil
}
