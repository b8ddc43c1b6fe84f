// Package telegram wraps the bot SDK with the handful of typed calls the
// rest of the application needs: channel sends, like-button edits, member
// counts and operator alerts.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v3"
)

// LikeCallbackPrefix is the callback payload prefix for like-button presses.
// The full payload is "like-<postID>".
const LikeCallbackPrefix = "like-"

// Client talks to one bot account posting into one channel.
type Client struct {
	bot      *tele.Bot
	channel  tele.ChatID
	operator int64
}

// NewClient builds a bot client. operator is the user id that receives
// operational alerts (pool exhausted, indexing results).
func NewClient(token string, channelID, operator int64, pollTimeout time.Duration) (*Client, error) {
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Client{
		bot:      bot,
		channel:  tele.ChatID(channelID),
		operator: operator,
	}, nil
}

// Bot exposes the underlying bot for handler registration and polling.
func (c *Client) Bot() *tele.Bot {
	return c.bot
}

// SendPhoto posts a single photo to the channel and returns the message id.
func (c *Client) SendPhoto(ctx context.Context, path string) (int64, error) {
	photo := &tele.Photo{File: tele.FromDisk(path)}
	msg, err := c.bot.Send(c.channel, photo)
	if err != nil {
		return 0, fmt.Errorf("failed to send photo: %w", err)
	}
	return int64(msg.ID), nil
}

// SendAlbum posts the given files as one grouped media post and returns the
// shared group identifier.
func (c *Client) SendAlbum(ctx context.Context, paths []string) (int64, error) {
	album := make(tele.Album, 0, len(paths))
	for _, path := range paths {
		album = append(album, &tele.Photo{File: tele.FromDisk(path)})
	}

	msgs, err := c.bot.SendAlbum(c.channel, album)
	if err != nil {
		return 0, fmt.Errorf("failed to send album: %w", err)
	}
	if len(msgs) == 0 {
		return 0, fmt.Errorf("album send returned no messages")
	}

	// Telegram's media group id is a numeric string; fall back to the first
	// message id if it is absent.
	if groupID, err := strconv.ParseInt(msgs[0].AlbumID, 10, 64); err == nil {
		return groupID, nil
	}
	return int64(msgs[0].ID), nil
}

// UpdateLikeButton renders the like affordance under a channel post.
func (c *Client) UpdateLikeButton(ctx context.Context, postID, count int64) error {
	_, err := c.bot.EditReplyMarkup(&channelMessage{
		messageID: postID,
		chatID:    int64(c.channel),
	}, LikeMarkup(postID, count))
	if err != nil {
		return fmt.Errorf("failed to edit reply markup: %w", err)
	}
	return nil
}

// MemberCount returns the channel's current member count.
func (c *Client) MemberCount(ctx context.Context, channelID int64) (int, error) {
	count, err := c.bot.Len(&tele.Chat{ID: channelID})
	if err != nil {
		return 0, fmt.Errorf("failed to get member count: %w", err)
	}
	return count, nil
}

// NotifyOperator sends a plain text alert to the configured operator.
func (c *Client) NotifyOperator(ctx context.Context, text string) error {
	_, err := c.bot.Send(tele.ChatID(c.operator), text)
	return err
}

// LikeMarkup builds the single-button inline keyboard for a post.
func LikeMarkup(postID, count int64) *tele.ReplyMarkup {
	btn := tele.InlineButton{
		Text: LikeButtonLabel(count),
		Data: fmt.Sprintf("%s%d", LikeCallbackPrefix, postID),
	}
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{btn}},
	}
}

// LikeButtonLabel formats the button caption. A zero count shows a blank
// label rather than "0".
func LikeButtonLabel(count int64) string {
	if count == 0 {
		return "🤍 "
	}
	return fmt.Sprintf("🤍 %d", count)
}

// channelMessage satisfies tele.Editable for markup edits on channel posts.
type channelMessage struct {
	messageID int64
	chatID    int64
}

func (m *channelMessage) MessageSig() (string, int64) {
	return strconv.FormatInt(m.messageID, 10), m.chatID
}
