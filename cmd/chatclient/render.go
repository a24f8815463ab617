package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/chatroom/internal/model/chat"
)

// renderMessage lays a chat line out the way the widget does: messages from
// others on the left, our own on the right.
func renderMessage(msg chat.ChatMessage, self string, width int) string {
	who := msg.Initials
	if who == "" {
		who = "?"
	}
	if msg.Agent {
		who += "*"
	}

	line := fmt.Sprintf("[%s] %s  %s", who, msg.Message, ageLabel(msg.CreatedAt))

	if msg.Agent || msg.Name == "" || msg.Name != self {
		return line
	}
	if pad := width - utf8.RuneCountInString(line); pad > 0 {
		return strings.Repeat(" ", pad) + line
	}
	return line
}

func ageLabel(createdAt string) string {
	if createdAt == "" || createdAt == "now" {
		return "just now"
	}
	return createdAt + " ago"
}
