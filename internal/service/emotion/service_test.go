package emotion

import (
	"context"
	"strings"
	"testing"

	analysis "github.com/zhouzirui/heartnote/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
)

func TestTagFallsBackWithoutModel(t *testing.T) {
	svc, err := NewService(context.Background(), nil, Config{Enabled: true})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if svc.Enabled() {
		t.Fatal("service without a model must not report enabled")
	}

	tag, ok := svc.Tag(context.Background(), nil, "Thank you so much, I am grateful")
	if !ok || tag.Label != analysis.Gratitude {
		t.Fatalf("expected heuristic gratitude tag, got %+v ok=%v", tag, ok)
	}

	if _, ok := svc.Tag(context.Background(), nil, "The bus leaves at nine"); ok {
		t.Fatal("expected no tag for neutral text")
	}
}

func TestParseTaggerOutput(t *testing.T) {
	payload, err := parseTaggerOutput("```json\n{\"emotion\":\"Hope\",\"confidence\":0.72,\"reason\":\"plans ahead\"}\n```")
	if err != nil {
		t.Fatalf("parseTaggerOutput: %v", err)
	}
	if payload.Emotion != "Hope" || payload.Confidence != 0.72 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if _, err := parseTaggerOutput("no json here"); err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestFormatHistoryKeepsLatest(t *testing.T) {
	msgs := []chat.Message{
		{Author: chat.AuthorUser, Content: "first"},
		{Author: chat.AuthorAI, Content: "second"},
		{Author: chat.AuthorUser, Content: "  "},
		{Author: chat.AuthorUser, Content: "third"},
	}
	got := formatHistory(msgs, 3)
	if strings.Contains(got, "first") {
		t.Fatalf("expected oldest message dropped: %q", got)
	}
	if got != "Companion: second\nUser: third" {
		t.Fatalf("unexpected history %q", got)
	}
	if formatHistory(nil, 3) != "(no earlier messages)" {
		t.Fatal("expected placeholder for empty history")
	}
}

func TestClampConfidence(t *testing.T) {
	if clampConfidence(0) != 0.6 || clampConfidence(1.4) != 1 || clampConfidence(0.3) != 0.3 {
		t.Fatal("unexpected clamping")
	}
}
