package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tabletopforge/npc-dialogue/internal/config"
	"github.com/tabletopforge/npc-dialogue/internal/model/npc"
	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
)

// Service generates in-character NPC responses through the configured chat
// model.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the prompt/model chain once at startup.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

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
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// Generate runs one model invocation for the profile and committed session
// state. The caller bounds ctx with the turn timeout.
func (s *Service) Generate(ctx context.Context, profile npc.Profile, sess sessionmodel.Session, userInput string) (string, error) {
	input := map[string]any{
		"system":  BuildSystemPrompt(profile, sess),
		"history": buildHistoryMessages(sess.Messages),
		"query":   userInput,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	log.Printf("[ai] generated response for character=%s length=%d", profile.ID, len(response.Content))
	return response.Content, nil
}

// buildHistoryMessages converts the most recent turns into model messages.
func buildHistoryMessages(messages []sessionmodel.Message) []*schema.Message {
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
		switch msg.Role {
		case sessionmodel.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case sessionmodel.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
