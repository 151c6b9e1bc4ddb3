package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/heartnote/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartnote/backend/internal/logger"
	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
)

// Config 控制情绪标注服务的行为。
type Config struct {
	Enabled      bool
	HistoryLimit int
}

// Service 使用大模型为用户消息标注情绪，并在必要时回退到关键词启发式规则。
type Service struct {
	enabled      bool
	classifier   compose.Runnable[map[string]any, *schema.Message]
	fallback     func(text string) (analysis.Tag, bool)
	historyLimit int
}

// NewService 创建情绪标注服务。chatModel 为 nil 时只使用启发式规则。
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 6
	}

	svc := &Service{
		enabled:      cfg.Enabled && chatModel != nil,
		fallback:     analysis.Analyze,
		historyLimit: historyLimit,
	}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(taggerSystemPrompt),
		schema.UserMessage(taggerUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile emotion tagger chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled 返回大模型标注是否启用。
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Tag 为一条用户消息给出情绪标签。第二个返回值为 false 表示没有可靠的情绪信号。
func (s *Service) Tag(ctx context.Context, history []chat.Message, content string) (analysis.Tag, bool) {
	if !s.Enabled() {
		return s.fallback(content)
	}

	input := map[string]any{
		"history": formatHistory(history, s.historyLimit),
		"message": strings.TrimSpace(content),
	}

	msg, err := s.classifier.Invoke(ctx, input)
	if err != nil {
		logger.Warn("emotion tagger invoke failed, using fallback", "error", err)
		return s.fallback(content)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.fallback(content)
	}

	result, err := parseTaggerOutput(msg.Content)
	if err != nil {
		logger.Warn("emotion tagger output parse failed, using fallback", "error", err)
		return s.fallback(content)
	}

	if strings.EqualFold(strings.TrimSpace(result.Emotion), "none") {
		return analysis.Tag{}, false
	}
	label, ok := analysis.ParseLabel(result.Emotion)
	if !ok {
		return s.fallback(content)
	}

	return analysis.Tag{Label: label, Confidence: clampConfidence(result.Confidence)}, true
}

// parseTaggerOutput 解析大模型返回的 JSON。
func parseTaggerOutput(content string) (*taggerPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &taggerPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func formatHistory(messages []chat.Message, limit int) string {
	if len(messages) == 0 {
		return "(no earlier messages)"
	}
	if limit < 1 {
		limit = 1
	}
	start := len(messages) - limit
	if start < 0 {
		start = 0
	}

	var builder strings.Builder
	for i := start; i < len(messages); i++ {
		msg := messages[i]
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "User"
		if msg.FromAI() {
			role = "Companion"
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(role)
		builder.WriteString(": ")
		builder.WriteString(content)
	}
	if builder.Len() == 0 {
		return "(no earlier messages)"
	}
	return builder.String()
}

func clampConfidence(val float64) float64 {
	if val <= 0 {
		return 0.6
	}
	if val > 1 {
		return 1
	}
	return val
}

type taggerPayload struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

const taggerSystemPrompt = "You label the emotion of a journaling user's latest message.\n" +
	"Answer with one JSON object only: emotion (one of joy/gratitude/excitement/hope/calm/sadness/anger/anxiety, or none), " +
	"confidence (number between 0 and 1), reason (short phrase). No other text."

const taggerUserPrompt = "Recent conversation:\n{history}\n\nLatest user message:\n{message}\n\nReturn the JSON."
