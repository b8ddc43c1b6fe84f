package biz

import (
	"context"
	"time"

	"autoposter/internal/pkg/chart"

	"github.com/go-kratos/kratos/v2/log"
)

// chartWindow is how far back the subscriber chart reaches.
const chartWindow = 30 * 24 * time.Hour

// SubscriberSnapshot is one (channel, count, timestamp) observation.
// Snapshots are append-only.
type SubscriberSnapshot struct {
	ID        int64
	ChannelID int64
	Number    int64
	CreatedAt time.Time
}

// SnapshotRepo owns subscriber snapshots.
type SnapshotRepo interface {
	// Append stores one new snapshot.
	Append(ctx context.Context, snap *SubscriberSnapshot) error
	// ListRecent returns a channel's snapshots taken at or after since,
	// newest first.
	ListRecent(ctx context.Context, channelID int64, since time.Time) ([]*SubscriberSnapshot, error)
}

// MemberCounter looks up a channel's live member count.
type MemberCounter interface {
	MemberCount(ctx context.Context, channelID int64) (int, error)
}

// TrackerUsecase records subscriber counts over time and renders them.
type TrackerUsecase struct {
	repo    SnapshotRepo
	counter MemberCounter
	now     func() time.Time
	log     *log.Helper
}

// NewTrackerUsecase creates a TrackerUsecase.
func NewTrackerUsecase(repo SnapshotRepo, counter MemberCounter, logger log.Logger) *TrackerUsecase {
	return &TrackerUsecase{
		repo:    repo,
		counter: counter,
		now:     time.Now,
		log:     log.NewHelper(logger),
	}
}

// Checkpoint appends one snapshot from a live member-count lookup.
func (uc *TrackerUsecase) Checkpoint(ctx context.Context, channelID int64) error {
	count, err := uc.counter.MemberCount(ctx, channelID)
	if err != nil {
		return err
	}
	return uc.repo.Append(ctx, &SubscriberSnapshot{
		ChannelID: channelID,
		Number:    int64(count),
		CreatedAt: uc.now(),
	})
}

// RenderChart renders the last month of snapshots to a PNG file and returns
// its path with a cleanup function. The caller defers cleanup so the file is
// removed whether or not the reply goes out.
func (uc *TrackerUsecase) RenderChart(ctx context.Context, channelID int64) (string, func(), error) {
	snaps, err := uc.repo.ListRecent(ctx, channelID, uc.now().Add(-chartWindow))
	if err != nil {
		return "", nil, err
	}

	// Snapshots arrive newest first; the chart is plotted ascending by
	// day of month.
	points := make([]chart.Point, len(snaps))
	for i, snap := range snaps {
		points[len(snaps)-1-i] = chart.Point{
			Day:   snap.CreatedAt.Day(),
			Count: snap.Number,
		}
	}

	return chart.RenderToTempFile(points)
}
