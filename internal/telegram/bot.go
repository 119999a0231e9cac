package telegram

import (
	"context"
	"fmt"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/deltabot/delta/internal/config"
	"github.com/deltabot/delta/internal/downloaders/missav"
	"github.com/deltabot/delta/internal/ffmpeg"
	"github.com/deltabot/delta/internal/hls"
	"github.com/deltabot/delta/internal/jobs"
	"github.com/deltabot/delta/internal/progress"
	"github.com/deltabot/delta/internal/utils"
)

const helpText = `Commands:
/video <url> [file name] - download a video, then pick a quality
/steal <t.me link> - copy media from another chat
/help - this message`

// Bot wires the downloader into a long-polling Telegram frontend.
type Bot struct {
	api        *tgbotapi.BotAPI
	settings   config.Settings
	pending    *jobs.Store
	downloader *missav.Downloader
	relay      *Relay
}

func NewBot(settings config.Settings) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(settings.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating bot API client: %v", err)
	}
	log.Debug().Str("op", "telegram/bot").Msgf("Authorized as @%s", api.Self.UserName)
	return &Bot{
		api:        api,
		settings:   settings,
		pending:    jobs.NewStore(0),
		downloader: &missav.Downloader{},
	}, nil
}

// SetRelay installs a media relay backend for the steal command. A relay
// without an explicit publisher posts through the Bot API.
func (b *Bot) SetRelay(relay *Relay) {
	if relay != nil && relay.Publisher == nil {
		relay.Publisher = &BotPublisher{Sender: b.api}
	}
	b.relay = relay
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if !b.settings.Allowed(msg.Chat.ID) {
		log.Debug().Str("op", "telegram/bot").Int64("chatId", msg.Chat.ID).Msg("Ignoring command from disallowed chat")
		return
	}
	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, helpText)
	case "video":
		b.handleVideoCommand(msg)
	case "steal":
		b.handleStealCommand(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command, see /help")
	}
}

func (b *Bot) handleVideoCommand(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "Usage: /video <url> [file name]")
		return
	}
	job := jobs.NewTransferJob(args[0], b.settings.OutputDir, hls.ParseQuality(b.settings.DefaultQuality))
	if len(args) > 1 {
		job.FileName = strings.Join(args[1:], " ")
	}
	job.HTTPClientConfig = utils.HTTPClientConfig{ProxyURL: b.settings.ProxyURL}
	if err := b.downloader.ValidateJob(job); err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Invalid request: %v", err))
		return
	}
	b.pending.Put(job)

	prompt := tgbotapi.NewMessage(msg.Chat.ID, "Pick a quality:")
	prompt.ReplyMarkup = qualityKeyboard(job.ID)
	if _, err := b.api.Send(prompt); err != nil {
		log.Error().Str("op", "telegram/bot").Msgf("Failed to send quality prompt: %v", err)
	}
}

func qualityKeyboard(jobID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Lowest", "q:"+jobID+":lowest"),
			tgbotapi.NewInlineKeyboardButtonData("Medium", "q:"+jobID+":medium"),
			tgbotapi.NewInlineKeyboardButtonData("High", "q:"+jobID+":high"),
		),
	)
}

// parseQualityCallback splits "q:<job-id>:<quality>" callback data.
func parseQualityCallback(data string) (string, hls.Quality, bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "q" || parts[1] == "" {
		return "", 0, false
	}
	return parts[1], hls.ParseQuality(parts[2]), true
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Debug().Str("op", "telegram/bot").Msgf("Callback ack failed: %v", err)
	}
	jobID, quality, ok := parseQualityCallback(callback.Data)
	if !ok || callback.Message == nil {
		return
	}
	job := b.pending.Take(jobID)
	if job == nil {
		b.editText(callback.Message.Chat.ID, callback.Message.MessageID, "This request expired, send the link again.")
		return
	}
	job.Quality = quality

	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	b.editText(chatID, messageID, fmt.Sprintf("Queued at %s quality", quality))

	go b.runJob(ctx, job, chatID, messageID)
}

// runJob drives one download and mirrors its progress into the prompt
// message, then uploads the result.
func (b *Bot) runJob(ctx context.Context, job *jobs.TransferJob, chatID int64, messageID int) {
	sink := NewMessageSink(b.api, chatID, messageID, b.settings.UpdateInterval.Std())
	job.Progress = progress.NewTracker(b.settings.UpdateInterval.Std(), sink)
	if err := b.downloader.BuildJob(job); err != nil {
		b.editText(chatID, messageID, fmt.Sprintf("Failed to prepare download: %v", err))
		return
	}
	ok, path := b.downloader.Download(ctx, job)
	if !ok {
		return // the sink already shows the failure status
	}
	b.uploadVideo(ctx, chatID, path)
}

func (b *Bot) uploadVideo(ctx context.Context, chatID int64, path string) {
	tools := ffmpeg.Toolset{FFmpeg: b.settings.FFmpegPath, FFprobe: b.settings.FFprobePath}
	parts, err := tools.SplitBySize(ctx, path, b.settings.MaxUploadBytes)
	if err != nil {
		log.Error().Str("op", "telegram/bot").Msgf("Failed to split video: %v", err)
		parts = []string{path}
	}
	thumb := ""
	if t, err := tools.GenerateThumbnail(ctx, path, strings.TrimSuffix(path, ".mp4")+".jpg"); err == nil {
		thumb = t
		defer os.Remove(thumb)
	}
	for _, part := range parts {
		video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(part))
		video.SupportsStreaming = true
		if thumb != "" {
			video.Thumb = tgbotapi.FilePath(thumb)
		}
		if info, err := tools.ProbeInfo(ctx, part); err == nil {
			video.Duration = int(info.DurationSeconds())
			w, h := info.Dimensions()
			log.Debug().Str("op", "telegram/bot").Msgf("Uploading %s (%dx%d, %.0fs)", part, w, h, info.DurationSeconds())
		}
		if _, err := b.api.Send(video); err != nil {
			log.Error().Str("op", "telegram/bot").Msgf("Failed to upload %s: %v", part, err)
			b.reply(chatID, fmt.Sprintf("Upload failed for %s", part))
		}
	}
}

func (b *Bot) handleStealCommand(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.reply(msg.Chat.ID, "Usage: /steal <t.me message link>")
		return
	}
	refs, err := ParseMessageLinkRange(arg)
	if err != nil {
		b.reply(msg.Chat.ID, "That doesn't look like a t.me message link or range.")
		return
	}
	for _, ref := range refs {
		if err := b.relay.Steal(ctx, ref, msg.Chat.ID); err != nil {
			b.reply(msg.Chat.ID, fmt.Sprintf("Steal failed at message %d: %v", ref.MessageID, err))
			return
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Debug().Str("op", "telegram/bot").Msgf("Failed to send message: %v", err)
	}
}

func (b *Bot) editText(chatID int64, messageID int, text string) {
	if _, err := b.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		log.Debug().Str("op", "telegram/bot").Msgf("Failed to edit message: %v", err)
	}
}
