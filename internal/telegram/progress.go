package telegram

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/deltabot/delta/internal/progress"
	"github.com/deltabot/delta/internal/utils"
)

// MessageEditor is the slice of the bot API the sink needs. *tgbotapi.BotAPI
// satisfies it.
type MessageEditor interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageSink mirrors tracker snapshots into one chat message via edits. It
// enforces the chat surface's own edit rate limit on top of the tracker's
// throttle, and it honors flood-control backoff before editing again. The
// terminal snapshot is always written out.
type MessageSink struct {
	api       MessageEditor
	chatID    int64
	messageID int
	interval  time.Duration

	mu       sync.Mutex
	lastEdit time.Time
	lastText string
	sawFull  bool
	done     bool
	sleep    func(time.Duration)
}

func NewMessageSink(api MessageEditor, chatID int64, messageID int, interval time.Duration) *MessageSink {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &MessageSink{
		api:       api,
		chatID:    chatID,
		messageID: messageID,
		interval:  interval,
		sleep:     time.Sleep,
	}
}

func (m *MessageSink) OnProgress(s progress.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return
	}
	// The 100% edit bypasses the throttle once; any snapshots after it
	// wait for the interval again so a low total estimate cannot turn
	// every delta into an edit.
	full := s.Total > 0 && s.Completed >= s.Total
	final := s.Terminal || (full && !m.sawFull)
	if !final && time.Since(m.lastEdit) < m.interval {
		return
	}
	m.sawFull = full
	text := renderSnapshot(s)
	if text == m.lastText {
		return
	}
	m.editWithBackoff(text)
	m.lastText = text
	m.lastEdit = time.Now()
	if s.Terminal {
		m.done = true
	}
}

func (m *MessageSink) editWithBackoff(text string) {
	edit := tgbotapi.NewEditMessageText(m.chatID, m.messageID, text)
	_, err := m.api.Request(edit)
	if err == nil {
		return
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		log.Debug().Str("op", "telegram/progress").Msgf("Flood control, sleeping %ds before edit", apiErr.RetryAfter)
		m.sleep(time.Duration(apiErr.RetryAfter) * time.Second)
		if _, err = m.api.Request(edit); err == nil {
			return
		}
	}
	log.Debug().Str("op", "telegram/progress").Msgf("Message edit failed: %v", err)
}

const barWidth = 10

func renderSnapshot(s progress.Snapshot) string {
	name := s.FileName
	if name == "" {
		name = "download"
	}
	if s.Terminal {
		if s.Status == "completed" {
			return fmt.Sprintf("✅ %s\n%s downloaded", name, utils.FormatBytes(uint64(s.Completed)))
		}
		return fmt.Sprintf("❌ %s\n%s", name, s.Status)
	}
	if s.Total <= 0 {
		return fmt.Sprintf("⏳ %s\n%s", name, s.Status)
	}
	filled := int(s.Percentage / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("◼", filled) + strings.Repeat("◻", barWidth-filled)
	return fmt.Sprintf("⏳ %s\n[%s] %.1f%%\n%s / %s\n%s  ETA %s",
		name,
		bar,
		s.Percentage,
		utils.FormatBytes(uint64(s.Completed)),
		utils.FormatBytes(uint64(s.Total)),
		utils.FormatSpeed(s.Completed, s.Elapsed),
		utils.FormatDuration(s.ETA))
}
