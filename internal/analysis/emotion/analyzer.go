package emotion

import (
	"math"
	"strings"
)

// Label 表示情绪标签。
type Label string

const (
	Joy        Label = "joy"
	Gratitude  Label = "gratitude"
	Excitement Label = "excitement"
	Hope       Label = "hope"
	Calm       Label = "calm"
	Sadness    Label = "sadness"
	Anger      Label = "anger"
	Anxiety    Label = "anxiety"
)

// Labels lists every label the tagger may emit.
var Labels = []Label{Joy, Gratitude, Excitement, Hope, Calm, Sadness, Anger, Anxiety}

// ParseLabel normalises raw into a known label.
func ParseLabel(raw string) (Label, bool) {
	normalized := Label(strings.ToLower(strings.TrimSpace(raw)))
	for _, l := range Labels {
		if l == normalized {
			return l, true
		}
	}
	return "", false
}

// Tag 是附加在用户消息上的情绪结果。
type Tag struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

var keywordBuckets = map[Label][]string{
	Joy: {
		"happy", "glad", "joy", "delighted", "smile", "laugh", "haha", "so fun", "wonderful",
		"开心", "高兴", "快乐", "喜悦", "哈哈", "笑",
	},
	Gratitude: {
		"thank", "grateful", "gratitude", "appreciate", "blessed", "thankful",
		"谢谢", "感谢", "感恩", "感激",
	},
	Excitement: {
		"excited", "amazing", "awesome", "can't wait", "wow", "great", "thrilled", "incredible", "success",
		"期待", "激动", "太棒了", "兴奋", "惊喜", "成功",
	},
	Hope: {
		"hope", "looking forward", "someday", "believe", "goal", "plan to", "will try", "achieve",
		"希望", "相信", "目标", "憧憬",
	},
	Calm: {
		"calm", "peaceful", "relaxed", "restful", "breathe", "quiet", "contented",
		"平静", "放松", "安心", "宁静",
	},
	Sadness: {
		"sad", "crying", "lonely", "miss you", "hurt", "upset", "depressed", "feel lost", "tired of",
		"难过", "伤心", "失落", "孤单", "哭", "沮丧",
	},
	Anger: {
		"angry", "furious", "so mad", "annoyed", "i hate", "enraged", "frustrated",
		"生气", "愤怒", "烦死", "受够了",
	},
	Anxiety: {
		"anxious", "worried", "nervous", "stress", "afraid", "scared", "panic", "overwhelmed",
		"焦虑", "担心", "紧张", "害怕", "压力",
	},
}

const (
	keywordWeight    = 3
	exclamationBoost = 2
	// confidence = score / (score + confidenceDamping): one keyword gives 0.5.
	confidenceDamping = 3.0
	maxConfidence     = 0.95
)

// Analyze 根据用户话语推断情绪标签与置信度；没有情绪信号时返回 false。
func Analyze(text string) (Tag, bool) {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Tag{}, false
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += keywordWeight
			}
		}
	}

	// 感叹号只放大已有的积极情绪。
	if exclamations := strings.Count(text, "!") + strings.Count(text, "！"); exclamations > 0 {
		for _, label := range []Label{Joy, Excitement} {
			if scores[label] > 0 {
				scores[label] += exclamations * exclamationBoost
			}
		}
	}

	bestLabel := Label("")
	bestScore := 0
	// Iterate in declaration order so equal scores resolve deterministically.
	for _, label := range Labels {
		if s := scores[label]; s > bestScore {
			bestScore = s
			bestLabel = label
		}
	}
	if bestScore == 0 {
		return Tag{}, false
	}

	confidence := float64(bestScore) / (float64(bestScore) + confidenceDamping)
	confidence = math.Min(maxConfidence, confidence)
	return Tag{Label: bestLabel, Confidence: math.Round(confidence*100) / 100}, true
}
