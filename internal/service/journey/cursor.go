package journey

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const cursorVersion = 1

// cursor pins the last item of a page. It is bound to one user and category.
type cursor struct {
	Version  int      `json:"v"`
	UserID   string   `json:"u"`
	Category Category `json:"c"`
	TS       int64    `json:"t"`
	ID       string   `json:"id"`
}

func encodeCursor(userID string, category Category, ts time.Time, id string) string {
	b, _ := json.Marshal(cursor{
		Version:  cursorVersion,
		UserID:   userID,
		Category: category,
		TS:       ts.UnixNano(),
		ID:       id,
	})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(token, userID string, category Category) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: not base64", ErrInvalidCursor)
	}

	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return cursor{}, fmt.Errorf("%w: malformed payload", ErrInvalidCursor)
	}

	switch {
	case c.Version != cursorVersion:
		return cursor{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidCursor, c.Version)
	case c.UserID != userID:
		return cursor{}, fmt.Errorf("%w: issued for another user", ErrInvalidCursor)
	case c.Category != category:
		return cursor{}, fmt.Errorf("%w: issued for category %q", ErrInvalidCursor, c.Category)
	case c.ID == "":
		return cursor{}, fmt.Errorf("%w: missing position", ErrInvalidCursor)
	}
	return c, nil
}

// after reports whether an entry sorts strictly after the cursor position
// in (timestamp desc, id asc) order.
func (c cursor) after(ts time.Time, id string) bool {
	n := ts.UnixNano()
	if n != c.TS {
		return n < c.TS
	}
	return id > c.ID
}
