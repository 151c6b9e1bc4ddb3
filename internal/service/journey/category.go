package journey

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCategory = errors.New("invalid journey category")
	ErrInvalidCursor   = errors.New("invalid journey cursor")
)

// Category 是旅程进度的四个分类之一。
type Category string

const (
	HeartToHearts    Category = "heart-to-hearts"
	GrowthMoments    Category = "growth-moments"
	GoalsAchieved    Category = "goals-achieved"
	BreakthroughDays Category = "breakthrough-days"
)

// Categories lists every category in display order.
var Categories = []Category{HeartToHearts, GrowthMoments, GoalsAchieved, BreakthroughDays}

// ParseCategory validates a raw category value.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.TrimSpace(raw))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
}

// CategorySet is a bit set of categories a favorited message contributes to.
type CategorySet uint8

func (c Category) bit() CategorySet {
	for i, known := range Categories {
		if c == known {
			return 1 << i
		}
	}
	return 0
}

// Has reports whether c is in the set.
func (s CategorySet) Has(c Category) bool {
	b := c.bit()
	return b != 0 && s&b != 0
}

func (s CategorySet) with(c Category) CategorySet {
	return s | c.bit()
}

// List returns the members in display order.
func (s CategorySet) List() []Category {
	out := make([]Category, 0, len(Categories))
	for _, c := range Categories {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
