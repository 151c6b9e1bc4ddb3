package ai

import (
	"fmt"
	"strings"

	analysis "github.com/zhouzirui/heartnote/backend/internal/analysis/emotion"
)

var companionRules = []string{
	"Reply in the language the user writes in.",
	"Keep replies under 120 words and end with at most one gentle question.",
	"Reflect the user's progress back to them; never diagnose or lecture.",
	"If the user mentions self-harm, encourage them to reach out to local emergency services.",
}

// buildSystemPrompt 组合陪伴者人设与当前情绪提示。
func buildSystemPrompt(name string, tag *analysis.Tag) string {
	if strings.TrimSpace(name) == "" {
		name = "Echo"
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "You are %s, a warm journaling companion. The user writes diary entries to you.\n\nRules:\n", name)
	for _, rule := range companionRules {
		builder.WriteString("- ")
		builder.WriteString(rule)
		builder.WriteString("\n")
	}

	if tag == nil || tag.Label == "" {
		return builder.String()
	}

	builder.WriteString("\nThe user's latest entry reads as ")
	builder.WriteString(string(tag.Label))
	fmt.Fprintf(&builder, " (confidence %.2f). ", tag.Confidence)
	if hint := describeEmotion(tag.Label); hint != "" {
		builder.WriteString(hint)
	}
	return builder.String()
}

func describeEmotion(label analysis.Label) string {
	switch label {
	case analysis.Joy, analysis.Excitement:
		return "Celebrate with them and keep the energy up."
	case analysis.Gratitude:
		return "Acknowledge what they are thankful for."
	case analysis.Hope:
		return "Encourage the next small step toward what they hope for."
	case analysis.Calm:
		return "Match their calm, unhurried tone."
	case analysis.Sadness:
		return "Be gentle and validating before anything else."
	case analysis.Anger:
		return "Stay steady and help them name what upset them."
	case analysis.Anxiety:
		return "Offer reassurance and one grounding suggestion."
	default:
		return ""
	}
}
