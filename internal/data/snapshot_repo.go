package data

import (
	"context"
	"time"

	"autoposter/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

type snapshotRepo struct {
	data *Data
	log  *log.Helper
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(data *Data, logger log.Logger) biz.SnapshotRepo {
	return &snapshotRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Append implements biz.SnapshotRepo.
func (r *snapshotRepo) Append(ctx context.Context, snap *biz.SubscriberSnapshot) error {
	return r.data.Pool.QueryRow(ctx, `
		INSERT INTO subs_log (channel_id, number, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		snap.ChannelID, snap.Number, snap.CreatedAt,
	).Scan(&snap.ID)
}

// ListRecent implements biz.SnapshotRepo.
func (r *snapshotRepo) ListRecent(ctx context.Context, channelID int64, since time.Time) ([]*biz.SubscriberSnapshot, error) {
	rows, err := r.data.Pool.Query(ctx, `
		SELECT id, channel_id, number, created_at
		FROM subs_log
		WHERE channel_id = $1 AND created_at >= $2
		ORDER BY id DESC`,
		channelID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*biz.SubscriberSnapshot
	for rows.Next() {
		var snap biz.SubscriberSnapshot
		if err := rows.Scan(&snap.ID, &snap.ChannelID, &snap.Number, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}
