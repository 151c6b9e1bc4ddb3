package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/heartnote/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartnote/backend/internal/config"
	"github.com/zhouzirui/heartnote/backend/internal/logger"
	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
)

const historyLimit = 10

// Service generates the companion's replies in a journaling chat.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the chat model from cfg and compiles the reply chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg)
}

// NewServiceWithModel compiles the reply chain over an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig) (*Service, error) {
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

// GetChatModel 返回底层的聊天模型
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

// Reply 生成陪伴者对用户最新一条日记消息的回复。
func (s *Service) Reply(ctx context.Context, history []chat.Message, userMessage string, tag *analysis.Tag) (string, error) {
	input := map[string]any{
		"system":  buildSystemPrompt(s.cfg.CompanionName, tag),
		"history": buildHistoryMessages(history),
		"query":   userMessage,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	content := strings.TrimSpace(response.Content)
	if content == "" {
		return "", fmt.Errorf("empty reply from chat model")
	}
	logger.Debug("generated companion reply", "length", len(content))
	return content, nil
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Author {
		case chat.AuthorUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.AuthorAI:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}
