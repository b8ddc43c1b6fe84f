package telegram

import (
	"strings"
	"testing"
)

func TestLikeButtonLabel(t *testing.T) {
	tests := []struct {
		name  string
		count int64
		want  string
	}{
		{name: "zero shows blank, not 0", count: 0, want: "🤍 "},
		{name: "one", count: 1, want: "🤍 1"},
		{name: "many", count: 42, want: "🤍 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LikeButtonLabel(tt.count); got != tt.want {
				t.Errorf("LikeButtonLabel(%d) = %q; want %q", tt.count, got, tt.want)
			}
		})
	}
}

func TestLikeMarkup(t *testing.T) {
	markup := LikeMarkup(12345, 3)

	if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 1 {
		t.Fatalf("expected a single-button keyboard, got %+v", markup.InlineKeyboard)
	}

	btn := markup.InlineKeyboard[0][0]
	if btn.Data != "like-12345" {
		t.Errorf("callback payload = %q; want like-12345", btn.Data)
	}
	if !strings.Contains(btn.Text, "3") {
		t.Errorf("label %q should carry the count", btn.Text)
	}
}

func TestChannelMessage_MessageSig(t *testing.T) {
	m := &channelMessage{messageID: 77, chatID: -100123}

	sig, chat := m.MessageSig()
	if sig != "77" || chat != -100123 {
		t.Errorf("MessageSig() = (%q, %d); want (77, -100123)", sig, chat)
	}
}
