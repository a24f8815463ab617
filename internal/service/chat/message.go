package chat

import (
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/zhouzirui/chatroom/internal/model/chat"
)

const maxInitials = 3

// Initials returns up to three upper-cased leading letters of the name's words.
func Initials(name string) string {
	var b strings.Builder
	count := 0
	for _, word := range strings.Fields(name) {
		if count == maxInitials {
			break
		}
		first := []rune(word)[0]
		b.WriteRune(unicode.ToUpper(first))
		count++
	}
	return b.String()
}

// TimeSince renders the age of a message, e.g. "now" or "3 minutes".
func TimeSince(sentAt, now time.Time) string {
	return strings.TrimSpace(humanize.RelTime(sentAt, now, "", ""))
}

// ComposeChatMessage turns an inbound "message" frame into the broadcast frame.
func ComposeChatMessage(in chat.OutboundMessage, sentAt, now time.Time) chat.ChatMessage {
	return chat.ChatMessage{
		Type:      chat.TypeChatMessage,
		Name:      in.Name,
		Agent:     in.Agent != "",
		Initials:  Initials(in.Name),
		Message:   in.Message,
		CreatedAt: TimeSince(sentAt, now),
	}
}
