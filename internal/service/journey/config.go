package journey

import (
	"strings"

	"github.com/zhouzirui/heartnote/backend/internal/config"
)

// Config 是旅程引擎的规则参数，构造后不再修改。
type Config struct {
	ConfidenceThreshold float64
	GoalKeywords        []string
	MaxPageLimit        int
	DefaultPageLimit    int
	PreviewLimit        int
}

// DefaultConfig mirrors config.DefaultJourneyConfig.
func DefaultConfig() Config {
	return ConfigFrom(config.DefaultJourneyConfig())
}

// ConfigFrom converts the loaded journey section into engine rules.
func ConfigFrom(jc config.JourneyConfig) Config {
	return Config{
		ConfidenceThreshold: jc.ConfidenceThreshold,
		GoalKeywords:        append([]string(nil), jc.GoalKeywords...),
		MaxPageLimit:        jc.MaxPageLimit,
		DefaultPageLimit:    10,
		PreviewLimit:        jc.PreviewLimit,
	}
}

func (c Config) normalized() Config {
	if c.MaxPageLimit < 1 {
		c.MaxPageLimit = 100
	}
	if c.DefaultPageLimit < 1 {
		c.DefaultPageLimit = 10
	}
	if c.DefaultPageLimit > c.MaxPageLimit {
		c.DefaultPageLimit = c.MaxPageLimit
	}
	if c.PreviewLimit < 1 {
		c.PreviewLimit = 5
	}

	keywords := make([]string, 0, len(c.GoalKeywords))
	for _, k := range c.GoalKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		keywords = append(keywords, config.DefaultGoalKeywords...)
	}
	c.GoalKeywords = keywords
	return c
}

// pageLimit applies the default and clamps to MaxPageLimit.
func (c Config) pageLimit(limit int) int {
	if limit <= 0 {
		return c.DefaultPageLimit
	}
	if limit > c.MaxPageLimit {
		return c.MaxPageLimit
	}
	return limit
}

func (c Config) previewLimit(limit int) int {
	if limit <= 0 {
		return c.PreviewLimit
	}
	if limit > c.MaxPageLimit {
		return c.MaxPageLimit
	}
	return limit
}
