package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/chatroom/internal/model/chat"
)

var replyRules = []string{
	"Answer in the visitor's language, in at most three short sentences.",
	"Never promise refunds, prices or delivery dates.",
	"If you cannot help, say that a human agent will join the room shortly.",
}

// buildSystemPrompt 构建客服代理的系统提示词
func buildSystemPrompt(agentName string, room chat.Room) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, the first-line support agent of a website chat widget.\n", agentName)
	if room.Client != "" {
		fmt.Fprintf(&b, "The visitor introduced themselves as %s.\n", room.Client)
	}
	if room.URL != "" {
		fmt.Fprintf(&b, "They opened the chat from %s.\n", room.URL)
	}
	b.WriteString("Visitor messages are prefixed with the visitor's name.\n\nRules:\n")
	for _, rule := range replyRules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
