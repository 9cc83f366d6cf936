// Package pagination implements the opaque keyset cursors shared by every
// listing endpoint.
//
// Listings fetch limit+1 rows in their total order, trim the overflow row and
// hand out a cursor naming it. The next page starts at that row, so listing
// cursors are inclusive. The notification bell uses the same encoding with an
// exclusive comparison.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxOffset bounds offset cursors, which only the a_z directory uses.
	MaxOffset = 10000
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the decoded form of the opaque token.
type Cursor struct {
	At     time.Time `json:"t,omitempty"`
	Score  *float64  `json:"v,omitempty"`
	ID     string    `json:"id"`
	Source string    `json:"s,omitempty"`
}

func Encode(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token. An empty token yields nil and no error.
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidCursor)
	}
	return &c, nil
}

// UintID returns the id of a cursor over a relational table.
func (c *Cursor) UintID() (uint, error) {
	n, err := strconv.ParseUint(c.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", ErrInvalidCursor, c.ID)
	}
	return uint(n), nil
}

// Offset returns the row offset carried by an offset cursor.
func (c *Cursor) Offset() (int, error) {
	n, err := strconv.ParseUint(c.ID, 10, 64)
	if err != nil || n > MaxOffset {
		return 0, fmt.Errorf("%w: offset %q", ErrInvalidCursor, c.ID)
	}
	return int(n), nil
}

// ClampLimit parses a limit query value, falling back to def and capping at max.
func ClampLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Trim drops the overflow row fetched beyond limit and returns a cursor for it.
func Trim[T any](items []T, limit int, key func(T) Cursor) ([]T, *string) {
	if len(items) <= limit {
		return items, nil
	}
	next := Encode(key(items[limit]))
	return items[:limit], &next
}

// TimeKey builds a cursor for a row ordered by timestamp then uint id.
func TimeKey(at time.Time, id uint) Cursor {
	return Cursor{At: at.UTC(), ID: strconv.FormatUint(uint64(id), 10)}
}
