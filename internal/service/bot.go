package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"autoposter/internal/biz"
	"autoposter/internal/conf"
	"autoposter/internal/pkg/chart"
	"autoposter/internal/pkg/telegram"

	"github.com/go-kratos/kratos/v2/log"
	tele "gopkg.in/telebot.v3"
)

// BotService implements the bot's chat surface: admin commands, photo
// uploads and like-button callbacks.
type BotService struct {
	bot     *conf.Bot
	client  *telegram.Client
	index   *biz.IndexUsecase
	posting *biz.PostingUsecase
	likes   *biz.LikeUsecase
	tracker *biz.TrackerUsecase
	log     *log.Helper
}

// NewBotService creates a new BotService.
func NewBotService(
	bot *conf.Bot,
	client *telegram.Client,
	index *biz.IndexUsecase,
	posting *biz.PostingUsecase,
	likes *biz.LikeUsecase,
	tracker *biz.TrackerUsecase,
	logger log.Logger,
) *BotService {
	return &BotService{
		bot:     bot,
		client:  client,
		index:   index,
		posting: posting,
		likes:   likes,
		tracker: tracker,
		log:     log.NewHelper(logger),
	}
}

// RegisterHandlers attaches the bot's handlers. Commands are sudo-only; the
// like callback is open to everyone who can see the channel.
func (s *BotService) RegisterHandlers(b *tele.Bot) {
	b.Handle("/insights", s.Restricted(s.HandleInsights))
	b.Handle("/index", s.Restricted(s.HandleIndex))
	b.Handle("/post", s.Restricted(s.HandlePost))
	b.Handle(tele.OnPhoto, s.Restricted(s.HandlePhoto))
	b.Handle(tele.OnCallback, s.HandleCallback)
}

// HandleInsights replies with index statistics and the subscriber chart.
func (s *BotService) HandleInsights(c tele.Context) error {
	ctx := context.Background()

	stats, err := s.index.Stats(ctx)
	if err != nil {
		s.log.Errorf("insights stats failed: %v", err)
		return c.Send("Failed to collect statistics")
	}

	members := "unknown"
	if n, err := s.client.MemberCount(ctx, s.bot.ChannelID); err != nil {
		s.log.Warnf("member count failed: %v", err)
	} else {
		members = strconv.Itoa(n)
	}

	lastPosted := "never"
	if stats.LastPostedAt != nil {
		lastPosted = stats.LastPostedAt.Format(time.RFC1123)
	}
	text := fmt.Sprintf(
		"Subscribers: %s\nImages indexed: %d\nPosted in the last 24h: %d\nLast posted: %s",
		members, stats.Total, stats.PostedToday, lastPosted,
	)
	if err := c.Send(text); err != nil {
		return err
	}

	path, cleanup, err := s.tracker.RenderChart(ctx, s.bot.ChannelID)
	if err != nil {
		if errors.Is(err, chart.ErrNotEnoughData) {
			return c.Send("Not enough subscriber data for a chart yet")
		}
		s.log.Errorf("subscriber chart failed: %v", err)
		return c.Send("Failed to render the subscriber chart")
	}
	defer cleanup()

	return c.Send(&tele.Photo{File: tele.FromDisk(path)})
}

// HandleIndex starts a full scan of the images directory. The scan runs in
// the background; completion is reported through an operator alert.
func (s *BotService) HandleIndex(c tele.Context) error {
	dir := s.bot.ImagesDir
	if err := c.Send(fmt.Sprintf("Indexing %s, this may take a while", dir)); err != nil {
		return err
	}

	go func() {
		ctx := context.Background()
		report, err := s.index.IndexDirectory(ctx, dir)
		if err != nil {
			s.log.Errorf("directory indexing failed: %v", err)
			s.notify(ctx, fmt.Sprintf("Indexing failed: %v", err))
			return
		}
		s.notify(ctx, fmt.Sprintf(
			"Indexing done: %d new, %d duplicates, %d failed",
			report.Indexed, report.Duplicates, report.Failed,
		))
	}()
	return nil
}

// HandlePost publishes a post right now, outside the schedule. An optional
// payload of "single" or "compilation" pins the post type.
func (s *BotService) HandlePost(c tele.Context) error {
	mode := biz.ModeAuto
	switch strings.TrimSpace(c.Message().Payload) {
	case "single":
		mode = biz.ModeSingle
	case "compilation":
		mode = biz.ModeCompilation
	case "":
	default:
		return c.Send("Usage: /post [single|compilation]")
	}

	if err := s.posting.Post(context.Background(), mode); err != nil {
		s.log.Errorf("manual post failed: %v", err)
		return c.Send(fmt.Sprintf("Post failed: %v", err))
	}
	return c.Send("Posted")
}

// HandlePhoto indexes a photo sent directly to the bot.
func (s *BotService) HandlePhoto(c tele.Context) error {
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}

	path := filepath.Join(s.bot.ImagesDir, photo.UniqueID+".jpg")
	if err := c.Bot().Download(&photo.File, path); err != nil {
		s.log.Errorf("photo download failed: %v", err)
		return c.Send("Failed to download the photo")
	}

	img, err := s.index.AddToIndex(context.Background(), path)
	if err != nil {
		if errors.Is(err, biz.ErrDuplicateImage) {
			return c.Send("Already in the index")
		}
		s.log.Errorf("photo indexing failed: %v", err)
		return c.Send("Failed to index the photo")
	}
	return c.Send(fmt.Sprintf("Indexed as #%d", img.ID))
}

// HandleCallback toggles a like and refreshes the button label.
func (s *BotService) HandleCallback(c tele.Context) error {
	// telebot prefixes unique-button payloads with \f; plain data buttons
	// arrive as-is. Accept both.
	data := strings.TrimPrefix(c.Callback().Data, "\f")
	if !strings.HasPrefix(data, telegram.LikeCallbackPrefix) {
		return c.Respond(&tele.CallbackResponse{})
	}

	postID, err := strconv.ParseInt(strings.TrimPrefix(data, telegram.LikeCallbackPrefix), 10, 64)
	if err != nil {
		s.log.Warnf("malformed like callback %q", data)
		return c.Respond(&tele.CallbackResponse{})
	}

	ctx := context.Background()

	var mediaID int64
	if img, err := s.index.FindByPostID(ctx, postID); err != nil {
		s.log.Warnf("post %d lookup failed: %v", postID, err)
	} else if img != nil {
		mediaID = img.ID
	}

	count, err := s.likes.Toggle(ctx, c.Sender().ID, postID, mediaID)
	if err != nil {
		s.log.Errorf("like toggle failed for post %d: %v", postID, err)
		return c.Respond(&tele.CallbackResponse{Text: "Something went wrong"})
	}

	if err := s.client.UpdateLikeButton(ctx, postID, count); err != nil {
		s.log.Warnf("like button refresh failed for post %d: %v", postID, err)
	}
	return c.Respond(&tele.CallbackResponse{})
}

func (s *BotService) notify(ctx context.Context, text string) {
	if err := s.client.NotifyOperator(ctx, text); err != nil {
		s.log.Errorf("operator alert failed: %v", err)
	}
}
