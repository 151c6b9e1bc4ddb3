package emotion

import "testing"

func TestAnalyzeHappyWithExclamation(t *testing.T) {
	tag, ok := Analyze("I'm so happy today!")
	if !ok {
		t.Fatal("expected a tag")
	}
	if tag.Label != Joy {
		t.Fatalf("expected joy, got %s", tag.Label)
	}
	if tag.Confidence < 0.5 {
		t.Fatalf("expected confidence >= 0.5, got %v", tag.Confidence)
	}
}

func TestAnalyzeSingleKeywordHitsThreshold(t *testing.T) {
	tag, ok := Analyze("我今天很难过")
	if !ok || tag.Label != Sadness {
		t.Fatalf("expected sadness, got %+v ok=%v", tag, ok)
	}
	if tag.Confidence != 0.5 {
		t.Fatalf("expected 0.5 confidence for a single keyword, got %v", tag.Confidence)
	}
}

func TestAnalyzeGratitude(t *testing.T) {
	tag, ok := Analyze("Thank you, I am so grateful for this week")
	if !ok || tag.Label != Gratitude {
		t.Fatalf("expected gratitude, got %+v ok=%v", tag, ok)
	}
}

func TestAnalyzeNoSignal(t *testing.T) {
	for _, text := range []string{"", "   ", "The meeting is at 3pm", "whatever, it is average"} {
		if tag, ok := Analyze(text); ok {
			t.Fatalf("expected no tag for %q, got %+v", text, tag)
		}
	}
}

func TestAnalyzeConfidenceCapped(t *testing.T) {
	tag, ok := Analyze("happy glad joy delighted smile laugh haha wonderful!!!!!")
	if !ok {
		t.Fatal("expected a tag")
	}
	if tag.Confidence > maxConfidence {
		t.Fatalf("confidence %v exceeds cap", tag.Confidence)
	}
}

func TestParseLabel(t *testing.T) {
	if l, ok := ParseLabel(" Gratitude "); !ok || l != Gratitude {
		t.Fatalf("ParseLabel = %s, %v", l, ok)
	}
	if _, ok := ParseLabel("neutral"); ok {
		t.Fatal("neutral is not a tagger label")
	}
}
