package chat_test

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	modelchat "github.com/zhouzirui/chatroom/internal/model/chat"
	chat "github.com/zhouzirui/chatroom/internal/service/chat"
)

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"ada lovelace":            "AL",
		"  Grace   Brewster Hopper": "GBH",
		"a b c d":                 "ABC",
		"émile zola":              "ÉZ",
		"":                        "",
	}
	for name, want := range cases {
		if got := chat.Initials(name); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestInitialsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("initials are at most three upper-case runes", prop.ForAll(
		func(words []string) bool {
			got := []rune(chat.Initials(strings.Join(words, " ")))
			if len(got) > 3 {
				return false
			}
			for _, r := range got {
				if unicode.IsLower(r) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestTimeSince(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	if got := chat.TimeSince(now, now); got != "now" {
		t.Fatalf("expected now, got %q", got)
	}
	if got := chat.TimeSince(now.Add(-3*time.Minute), now); got != "3 minutes" {
		t.Fatalf("expected 3 minutes, got %q", got)
	}
}

func TestComposeChatMessage(t *testing.T) {
	now := time.Now()

	visitor := chat.ComposeChatMessage(modelchat.NewOutboundMessage("Ada Lovelace", "hi"), now, now)
	if visitor.Type != modelchat.TypeChatMessage || visitor.Agent || visitor.Initials != "AL" || visitor.Message != "hi" {
		t.Fatalf("unexpected visitor frame: %+v", visitor)
	}

	in := modelchat.NewOutboundMessage("Support Desk", "hello")
	in.Agent = "7"
	agent := chat.ComposeChatMessage(in, now, now)
	if !agent.Agent || agent.Name != "Support Desk" {
		t.Fatalf("unexpected agent frame: %+v", agent)
	}
}
