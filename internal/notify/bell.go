package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/internal/textutil"
)

const (
	maxMessageThreads = 50
	messageBodyLen    = 180
)

// BellItem is one row of the bell, either a stored notification or a
// derived unread message.
type BellItem struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Level       string          `json:"level"`
	Title       string          `json:"title"`
	Body        string          `json:"body,omitempty"`
	ContextType string          `json:"context_type,omitempty"`
	ContextID   string          `json:"context_id,omitempty"`
	ActorUserID *uint           `json:"actor_user_id,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	IsRead      bool            `json:"is_read"`
	CreatedAt   time.Time       `json:"created_at"`
	Source      string          `json:"source"`

	num uint64
}

func (it BellItem) cursor() pagination.Cursor {
	return pagination.Cursor{At: it.CreatedAt.UTC(), ID: it.ID, Source: it.Source}
}

func sourceRank(s string) int {
	if s == repositories.SourceMessage {
		return 0
	}
	return 1
}

// before reports whether a sorts ahead of b in bell order.
func before(a, b BellItem) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if ra, rb := sourceRank(a.Source), sourceRank(b.Source); ra != rb {
		return ra < rb
	}
	if a.Source == repositories.SourceNotification && b.Source == repositories.SourceNotification {
		return a.num > b.num
	}
	return a.ID > b.ID
}

func cursorItem(c *pagination.Cursor) BellItem {
	it := BellItem{ID: c.ID, CreatedAt: c.At, Source: c.Source}
	if c.Source != repositories.SourceMessage {
		it.Source = repositories.SourceNotification
		it.num, _ = strconv.ParseUint(c.ID, 10, 64)
	}
	return it
}

// FromNotification converts a stored row.
func FromNotification(n models.Notification) BellItem {
	return BellItem{
		ID:          strconv.FormatUint(uint64(n.ID), 10),
		Type:        n.Type,
		Level:       n.Level,
		Title:       n.Title,
		Body:        n.Body,
		ContextType: n.ContextType,
		ContextID:   n.ContextID,
		ActorUserID: n.ActorUserID,
		Data:        json.RawMessage(n.Data),
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt,
		Source:      repositories.SourceNotification,
		num:         uint64(n.ID),
	}
}

func fromMessage(m models.Message) BellItem {
	actor := m.FromUserID
	data, _ := json.Marshal(map[string]uint{"threadId": m.ThreadID, "messageId": m.ID})
	return BellItem{
		ID:          fmt.Sprintf("msg:%d:%d", m.ThreadID, m.ID),
		Type:        models.NotifMessage,
		Level:       models.LevelActionable,
		Title:       "New message",
		Body:        textutil.Truncate(m.Text, messageBodyLen),
		ContextType: models.ContextThread,
		ContextID:   strconv.FormatUint(uint64(m.ThreadID), 10),
		ActorUserID: &actor,
		Data:        data,
		CreatedAt:   m.CreatedAt,
		Source:      repositories.SourceMessage,
	}
}

// Bell merges stored notifications with unread direct messages.
type Bell struct {
	notifications repositories.NotificationRepository
	threads       repositories.ThreadRepository
}

func NewBell(notifications repositories.NotificationRepository, threads repositories.ThreadRepository) *Bell {
	return &Bell{notifications: notifications, threads: threads}
}

// List returns one bell page strictly after the cursor and the cursor of the
// last item when more items remain.
func (b *Bell) List(ctx context.Context, userID uint, unreadOnly bool, after *pagination.Cursor, limit int) ([]BellItem, *string, error) {
	rows, err := b.notifications.ListForBell(ctx, userID, unreadOnly, after, limit+1)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := b.MessageItems(ctx, userID, limit, after)
	if err != nil {
		return nil, nil, err
	}

	items := make([]BellItem, 0, len(rows)+len(msgs))
	for _, n := range rows {
		items = append(items, FromNotification(n))
	}
	items = append(items, msgs...)
	sort.SliceStable(items, func(i, j int) bool { return before(items[i], items[j]) })

	if len(items) <= limit {
		return items, nil, nil
	}
	page := items[:limit]
	next := pagination.Encode(page[limit-1].cursor())
	return page, &next, nil
}

// MessageItems derives one item per thread with unread incoming messages.
func (b *Bell) MessageItems(ctx context.Context, userID uint, limit int, after *pagination.Cursor) ([]BellItem, error) {
	n := limit * 2
	if n > maxMessageThreads || n <= 0 {
		n = maxMessageThreads
	}
	threads, err := b.threads.ListThreads(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return nil, nil
	}
	ids := make([]uint, len(threads))
	for i, t := range threads {
		ids[i] = t.ID
	}
	reads, err := b.threads.ReadTimes(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	var bound *BellItem
	if after != nil {
		c := cursorItem(after)
		bound = &c
	}

	items := []BellItem{}
	for _, t := range threads {
		var since *time.Time
		if readAt, ok := reads[t.ID]; ok {
			if !t.LastMessageAt.After(readAt) {
				continue
			}
			since = &readAt
		}
		m, err := b.threads.LatestIncoming(ctx, t.ID, userID, since)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		it := fromMessage(*m)
		if bound != nil && !before(*bound, it) {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// Unseen is the bell badge.
type Unseen struct {
	Count    int64      `json:"count"`
	LatestAt *time.Time `json:"latest_at"`
}

func (b *Bell) Unseen(ctx context.Context, userID uint) (*Unseen, error) {
	count, err := b.notifications.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := b.MessageItems(ctx, userID, maxMessageThreads, nil)
	if err != nil {
		return nil, err
	}
	latest, err := b.notifications.LatestAt(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Unseen{Count: count + int64(len(msgs)), LatestAt: latest}, nil
}
