package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"autoposter/internal/biz"
	"autoposter/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// pollInterval is the scheduler's wakeup cadence. Due work is detected on
// the next tick, so fire times are accurate to about a second.
const pollInterval = time.Second

// Scheduler drives the two background jobs: randomized channel posting and
// the daily subscriber checkpoint. A failed job is logged and retried on the
// next due time; it never stops the loop.
type Scheduler struct {
	posting *biz.PostingUsecase
	tracker *biz.TrackerUsecase

	channelID  int64
	rateMin    time.Duration
	rateMax    time.Duration
	checkpoint conf.Clock

	drawInterval func() time.Duration
	now          func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *log.Helper
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	posting *biz.PostingUsecase,
	tracker *biz.TrackerUsecase,
	bot *conf.Bot,
	pc *conf.Posting,
	logger log.Logger,
) *Scheduler {
	rateMin := time.Duration(pc.RateMinMinutes) * time.Minute
	rateMax := time.Duration(pc.RateMaxMinutes) * time.Minute
	checkpoint, _ := conf.ParseClock(pc.CheckpointAt) // validated at load time

	s := &Scheduler{
		posting:    posting,
		tracker:    tracker,
		channelID:  bot.ChannelID,
		rateMin:    rateMin,
		rateMax:    rateMax,
		checkpoint: checkpoint,
		now:        time.Now,
		log:        log.NewHelper(logger),
	}
	s.drawInterval = func() time.Duration {
		return drawInterval(rateMin, rateMax, rand.Intn)
	}
	return s
}

// Start launches the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)

	s.log.Infof("scheduler started: posting every %s..%s, checkpoint at %02d:%02d",
		s.rateMin, s.rateMax, s.checkpoint.Hour, s.checkpoint.Minute)
	return nil
}

// Stop cancels the loop and waits for an in-flight job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	nextPost := s.now().Add(s.drawInterval())
	nextCheckpoint := nextOccurrence(s.now(), s.checkpoint)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := s.now()

		if !now.Before(nextPost) {
			if err := s.posting.Post(ctx, biz.ModeAuto); err != nil {
				s.log.Errorf("scheduled post failed: %v", err)
			}
			nextPost = now.Add(s.drawInterval())
			s.log.Debugf("next post at %s", nextPost.Format(time.RFC3339))
		}

		if !now.Before(nextCheckpoint) {
			if err := s.tracker.Checkpoint(ctx, s.channelID); err != nil {
				s.log.Errorf("subscriber checkpoint failed: %v", err)
			}
			nextCheckpoint = nextOccurrence(now, s.checkpoint)
		}
	}
}

// drawInterval picks a uniformly random duration in [min, max], rounded to
// whole minutes.
func drawInterval(min, max time.Duration, intn func(int) int) time.Duration {
	spanMinutes := int((max - min) / time.Minute)
	return min + time.Duration(intn(spanMinutes+1))*time.Minute
}

// nextOccurrence returns the first time after now with the given wall clock.
func nextOccurrence(now time.Time, c conf.Clock) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
