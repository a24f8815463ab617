package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/chatroom/internal/config"
	"github.com/zhouzirui/chatroom/internal/model/chat"
)

const defaultAgentName = "Assistant"

// Service answers room visitors with an LLM while no human agent is around.
type Service struct {
	cfg   config.AIConfig
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the agent on top of the configured Ark chat model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newService(ctx, chatModel, cfg)
}

func newService(ctx context.Context, chatModel model.BaseChatModel, cfg config.AIConfig) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		cfg:   cfg,
		chain: runnable,
	}, nil
}

// Name is the display name used on agent replies.
func (s *Service) Name() string {
	if name := strings.TrimSpace(s.cfg.AgentName); name != "" {
		return name
	}
	return defaultAgentName
}

// Reply answers the latest visitor message in history. It returns "" when the
// room's last message did not come from a visitor.
func (s *Service) Reply(ctx context.Context, room chat.Room, history []chat.ChatMessage) (string, error) {
	if len(history) == 0 || history[len(history)-1].Agent {
		return "", nil
	}

	response, err := s.chain.Invoke(ctx, s.buildChainInput(room, history))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	content := strings.TrimSpace(response.Content)
	log.Printf("[ai] generated reply for room=%s, length=%d", room.ID, len(content))
	return content, nil
}

func (s *Service) buildChainInput(room chat.Room, history []chat.ChatMessage) map[string]any {
	last := history[len(history)-1]
	return map[string]any{
		"system":  buildSystemPrompt(s.Name(), room),
		"history": buildHistoryMessages(history[:len(history)-1]),
		"query":   speakerLine(last),
	}
}

// buildHistoryMessages maps earlier room messages onto chat roles. Agent
// messages become assistant turns.
func buildHistoryMessages(messages []chat.ChatMessage) []*schema.Message {
	const historyLimit = 10

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		if msg.Agent {
			history = append(history, schema.AssistantMessage(msg.Message, nil))
			continue
		}
		history = append(history, schema.UserMessage(speakerLine(msg)))
	}

	return history
}

func speakerLine(msg chat.ChatMessage) string {
	if msg.Name == "" {
		return msg.Message
	}
	return msg.Name + ": " + msg.Message
}
