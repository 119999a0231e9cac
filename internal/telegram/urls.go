package telegram

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

var ErrInvalidMessageLink = errors.New("invalid message link")

// MessageRef identifies a single message in a chat. Private channel links
// carry a numeric internal ID; public ones carry a username.
type MessageRef struct {
	ChatID    int64
	Username  string
	MessageID int
}

// ParseMessageLink resolves t.me message links of both shapes:
// https://t.me/c/<internal-id>/<message-id> for private channels and
// https://t.me/<username>/<message-id> for public ones.
func ParseMessageLink(raw string) (MessageRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return MessageRef{}, ErrInvalidMessageLink
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host != "t.me" && host != "telegram.me" {
		return MessageRef{}, ErrInvalidMessageLink
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 3 && parts[0] == "c" {
		// Private channel IDs gain a -100 prefix on the Bot API surface.
		chatID, err := strconv.ParseInt("-100"+parts[1], 10, 64)
		if err != nil {
			return MessageRef{}, ErrInvalidMessageLink
		}
		messageID, err := strconv.Atoi(parts[2])
		if err != nil || messageID <= 0 {
			return MessageRef{}, ErrInvalidMessageLink
		}
		return MessageRef{ChatID: chatID, MessageID: messageID}, nil
	}
	if len(parts) == 2 && parts[0] != "" {
		messageID, err := strconv.Atoi(parts[1])
		if err != nil || messageID <= 0 {
			return MessageRef{}, ErrInvalidMessageLink
		}
		return MessageRef{Username: parts[0], MessageID: messageID}, nil
	}
	return MessageRef{}, ErrInvalidMessageLink
}

// maxLinkRange caps how many messages a single range request may expand to.
const maxLinkRange = 100

// ParseMessageLinkRange resolves either a single message link or a
// "first - last" pair of links. Both links must point into the same chat;
// the range is inclusive and expands in ascending message-ID order.
func ParseMessageLinkRange(raw string) ([]MessageRef, error) {
	firstRaw, secondRaw, found := strings.Cut(raw, " - ")
	first, err := ParseMessageLink(strings.TrimSpace(firstRaw))
	if err != nil {
		return nil, err
	}
	if !found {
		return []MessageRef{first}, nil
	}
	second, err := ParseMessageLink(strings.TrimSpace(secondRaw))
	if err != nil {
		return nil, err
	}
	if second.ChatID != first.ChatID || second.Username != first.Username {
		return nil, ErrInvalidMessageLink
	}
	if second.MessageID < first.MessageID {
		return nil, ErrInvalidMessageLink
	}
	if second.MessageID-first.MessageID+1 > maxLinkRange {
		return nil, ErrInvalidMessageLink
	}
	refs := make([]MessageRef, 0, second.MessageID-first.MessageID+1)
	for id := first.MessageID; id <= second.MessageID; id++ {
		refs = append(refs, MessageRef{ChatID: first.ChatID, Username: first.Username, MessageID: id})
	}
	return refs, nil
}
