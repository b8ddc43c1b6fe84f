package data

import (
	"context"
	"fmt"

	"autoposter/internal/biz"
	"autoposter/internal/pkg/bloom"
	pkgredis "autoposter/internal/pkg/redis"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	dedupFilterKey = "autoposter:dedup"
	// ~1.2MB bitset with 14 hash functions keeps the false positive rate
	// negligible for an index in the tens of thousands.
	dedupFilterBits  = 10_000_000
	dedupFilterFuncs = 14
)

// NewDedupFilter builds the content-hash Bloom filter and seeds it from the
// index. Seeding makes a negative answer trustworthy even on a fresh redis;
// the database unique constraint stays authoritative on positives.
func NewDedupFilter(cache pkgredis.Cache, repo biz.ImageRepo, logger log.Logger) (biz.DedupFilter, error) {
	helper := log.NewHelper(logger)
	filter := bloom.NewBloomFilter(cache, dedupFilterKey, dedupFilterBits, dedupFilterFuncs)

	ctx := context.Background()
	// Rebuild from scratch so bits for rows removed since the last run do
	// not linger; the index is the authority.
	if err := filter.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset dedup filter: %w", err)
	}
	hashes, err := repo.ListContentHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed dedup filter: %w", err)
	}
	for _, h := range hashes {
		if err := filter.Add(ctx, []byte(h)); err != nil {
			return nil, fmt.Errorf("failed to seed dedup filter: %w", err)
		}
	}
	helper.Infof("dedup filter seeded with %d content hashes", len(hashes))

	return filter, nil
}
