package biz

import (
	"context"
	"testing"
)

func newTestLike() (*LikeUsecase, *fakeLikeRepo, *fakeCountCache) {
	repo := &fakeLikeRepo{}
	cache := newFakeCountCache()
	return NewLikeUsecase(repo, cache, testLogger()), repo, cache
}

func TestToggle_RoundTrip(t *testing.T) {
	uc, _, _ := newTestLike()
	ctx := context.Background()

	count, err := uc.Toggle(ctx, 100, 7, 1)
	if err != nil {
		t.Fatalf("first Toggle failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count after like = %d; want 1", count)
	}

	count, err = uc.Toggle(ctx, 100, 7, 1)
	if err != nil {
		t.Fatalf("second Toggle failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count after unlike = %d; want 0", count)
	}
}

func TestToggle_CountsPerPost(t *testing.T) {
	uc, _, _ := newTestLike()
	ctx := context.Background()

	if _, err := uc.Toggle(ctx, 100, 7, 1); err != nil {
		t.Fatal(err)
	}
	count, err := uc.Toggle(ctx, 200, 7, 1)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count with two likers = %d; want 2", count)
	}

	// A like on another post leaves this one alone.
	if _, err := uc.Toggle(ctx, 100, 8, 2); err != nil {
		t.Fatal(err)
	}
	count, err = uc.Count(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count after unrelated like = %d; want 2", count)
	}
}

func TestToggle_UpdatesCache(t *testing.T) {
	uc, _, cache := newTestLike()
	ctx := context.Background()

	if _, err := uc.Toggle(ctx, 100, 7, 1); err != nil {
		t.Fatal(err)
	}

	cached, ok, err := cache.GetCount(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("cache miss after toggle: ok=%v err=%v", ok, err)
	}
	if cached != 1 {
		t.Errorf("cached count = %d; want 1", cached)
	}
}

func TestCount_PrefersCache(t *testing.T) {
	uc, repo, cache := newTestLike()
	ctx := context.Background()

	// A stale cache entry is served as-is; the repo is the write path's
	// problem, not the read path's.
	if err := cache.SetCount(ctx, 9, 5); err != nil {
		t.Fatal(err)
	}
	count, err := uc.Count(ctx, 9)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("Count = %d; want cached 5", count)
	}

	// On a miss the repo answer is returned and backfilled.
	if err := repo.Create(ctx, &Like{UserID: 1, PostID: 10}); err != nil {
		t.Fatal(err)
	}
	count, err = uc.Count(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Count on cache miss = %d; want 1", count)
	}
	cached, ok, _ := cache.GetCount(ctx, 10)
	if !ok || cached != 1 {
		t.Errorf("cache backfill = (%d, %v); want (1, true)", cached, ok)
	}
}
