package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrStealUnavailable is returned when no media relay backend is configured.
// Copying restricted media needs a user-session client, which the bot API
// surface cannot provide on its own.
var ErrStealUnavailable = errors.New("media relay backend not configured")

// MediaFetcher pulls media out of a source message into a local file.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, ref MessageRef) (string, error)
}

// MediaPublisher posts a local media file into a destination chat.
type MediaPublisher interface {
	PublishMedia(ctx context.Context, chatID int64, path string) error
}

// Relay moves media from one chat message to another through a local file.
type Relay struct {
	Fetcher   MediaFetcher
	Publisher MediaPublisher
}

func (r *Relay) Steal(ctx context.Context, ref MessageRef, destChatID int64) error {
	if r == nil || r.Fetcher == nil || r.Publisher == nil {
		return ErrStealUnavailable
	}
	path, err := r.Fetcher.FetchMedia(ctx, ref)
	if err != nil {
		return fmt.Errorf("error fetching media: %v", err)
	}
	if err := r.Publisher.PublishMedia(ctx, destChatID, path); err != nil {
		return fmt.Errorf("error publishing media: %v", err)
	}
	return nil
}

// MessageSender is the sending surface of the Bot API client.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotPublisher posts fetched media through the Bot API. Fetching restricted
// media still needs a user-session Fetcher; this covers the publish half.
type BotPublisher struct {
	Sender MessageSender
}

func (p *BotPublisher) PublishMedia(ctx context.Context, chatID int64, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := p.Sender.Send(doc); err != nil {
		return fmt.Errorf("error sending media to chat %d: %v", chatID, err)
	}
	return nil
}
