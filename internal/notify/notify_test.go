package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeNotifications struct {
	repositories.NotificationRepository
	rows   []models.Notification
	muted  map[uint]bool
	nextID uint
	unread int64
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	f.nextID++
	n.ID = f.nextID
	n.CreatedAt = time.Now()
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotifications) MutedUserIDs(_ context.Context, ids []uint, _, _ string, _ time.Time) (map[uint]bool, error) {
	out := map[uint]bool{}
	for _, id := range ids {
		if f.muted[id] {
			out[id] = true
		}
	}
	return out, nil
}

// ListForBell mirrors the SQL ordering and cursor predicate.
func (f *fakeNotifications) ListForBell(_ context.Context, _ uint, unreadOnly bool, after *pagination.Cursor, limit int) ([]models.Notification, error) {
	out := []models.Notification{}
	for _, n := range f.rows {
		if unreadOnly && n.IsRead {
			continue
		}
		if after != nil && !before(cursorItem(after), FromNotification(n)) {
			continue
		}
		out = append(out, n)
	}
	items := make([]BellItem, len(out))
	for i, n := range out {
		items[i] = FromNotification(n)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if before(items[j], items[i]) {
				items[i], items[j] = items[j], items[i]
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotifications) GetUnreadCount(context.Context, uint) (int64, error) {
	return f.unread, nil
}

func (f *fakeNotifications) LatestAt(context.Context, uint) (*time.Time, error) {
	var latest *time.Time
	for i := range f.rows {
		if at := f.rows[i].CreatedAt; latest == nil || at.After(*latest) {
			latest = &at
		}
	}
	return latest, nil
}

type fakeThreads struct {
	repositories.ThreadRepository
	threads []models.Thread
	reads   map[uint]time.Time
	latest  map[uint]*models.Message
}

func (f *fakeThreads) ListThreads(_ context.Context, _ uint, limit int) ([]models.Thread, error) {
	if limit > 0 && len(f.threads) > limit {
		return f.threads[:limit], nil
	}
	return f.threads, nil
}

func (f *fakeThreads) ReadTimes(context.Context, uint, []uint) (map[uint]time.Time, error) {
	return f.reads, nil
}

func (f *fakeThreads) LatestIncoming(_ context.Context, threadID, _ uint, _ *time.Time) (*models.Message, error) {
	return f.latest[threadID], nil
}

func TestNotifySkipsSelf(t *testing.T) {
	store := &fakeNotifications{}
	n := NewNotifier(store, NewMemoryBus(), zap.NewNop())

	row, err := n.Notify(context.Background(), 7, Input{Type: models.NotifFollow, ActorUserID: 7, Title: "x"})
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.Empty(t, store.rows)

	row, err = n.Notify(context.Background(), 7, Input{Type: models.NotifSystem, ActorUserID: 7, Title: "x"})
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestNotifyHonorsMute(t *testing.T) {
	store := &fakeNotifications{muted: map[uint]bool{3: true}}
	n := NewNotifier(store, NewMemoryBus(), zap.NewNop())

	row, err := n.Notify(context.Background(), 3, Input{Type: models.NotifComment, ContextType: models.ContextPost, ContextID: "abc"})
	require.NoError(t, err)
	assert.Nil(t, row)

	allowed, err := n.AllowedRecipients(context.Background(), []uint{1, 3, 4, 1}, models.ContextPost, "abc")
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 4}, allowed)
}

func TestNotifyStoresAndPublishes(t *testing.T) {
	store := &fakeNotifications{}
	bus := NewMemoryBus()
	n := NewNotifier(store, bus, zap.NewNop())

	events, cancel := bus.Subscribe(context.Background(), 9)
	defer cancel()

	row, err := n.Notify(context.Background(), 9, Input{
		Type:        models.NotifMention,
		Title:       "Ana mentioned you",
		ActorUserID: 2,
		URL:         "/posts/1",
		Data:        map[string]interface{}{"url": "/posts/override", "postId": "1"},
	})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.LevelInfo, row.Level)

	var data map[string]string
	require.NoError(t, json.Unmarshal(row.Data, &data))
	assert.Equal(t, "/posts/override", data["url"])
	assert.Equal(t, "1", data["postId"])

	select {
	case ev := <-events:
		assert.Equal(t, EventNew, ev.Kind)
		assert.Equal(t, row.ID, ev.Notification.ID)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestNotifyMany(t *testing.T) {
	store := &fakeNotifications{muted: map[uint]bool{2: true}}
	n := NewNotifier(store, NewMemoryBus(), zap.NewNop())

	stored := n.NotifyMany(context.Background(), []uint{1, 2, 5}, Input{
		Type: models.NotifCallsheetPublished, ContextType: models.ContextProject, ContextID: "4", ActorUserID: 5,
	})
	assert.Equal(t, 1, stored)
}

func TestMemoryBusCancelAndDrop(t *testing.T) {
	bus := NewMemoryBus()
	events, cancel := bus.Subscribe(context.Background(), 1)
	assert.Equal(t, 1, bus.Subscribers(1))

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, bus.Publish(context.Background(), 1, Event{Kind: EventNew}))
	}
	assert.Len(t, events, subscriberBuffer)

	cancel()
	cancel()
	assert.Equal(t, 0, bus.Subscribers(1))
	require.NoError(t, bus.Publish(context.Background(), 1, Event{Kind: EventNew}))
}

func TestBellMergeOrderAndPaging(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeNotifications{rows: []models.Notification{
		{ID: 1, Type: models.NotifFollow, CreatedAt: base.Add(-3 * time.Minute)},
		{ID: 2, Type: models.NotifComment, CreatedAt: base},
		{ID: 3, Type: models.NotifMention, CreatedAt: base},
	}}
	threads := &fakeThreads{
		threads: []models.Thread{
			{ID: 10, LastMessageAt: base},
			{ID: 11, LastMessageAt: base.Add(-time.Minute)},
			{ID: 12, LastMessageAt: base.Add(-2 * time.Minute)},
		},
		reads: map[uint]time.Time{12: base.Add(-2 * time.Minute)},
		latest: map[uint]*models.Message{
			10: {ID: 100, ThreadID: 10, FromUserID: 4, Text: "call moved", CreatedAt: base},
			11: {ID: 101, ThreadID: 11, FromUserID: 5, Text: "see you", CreatedAt: base.Add(-time.Minute)},
			12: {ID: 102, ThreadID: 12, FromUserID: 6, Text: "read already", CreatedAt: base.Add(-2 * time.Minute)},
		},
	}
	bell := NewBell(store, threads)

	page, next, err := bell.List(context.Background(), 1, false, nil, 2)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, []string{"msg:10:100", "3"}, ids(page))

	cur, err := pagination.Decode(*next)
	require.NoError(t, err)
	assert.Equal(t, repositories.SourceNotification, cur.Source)

	page, next, err = bell.List(context.Background(), 1, false, cur, 2)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, []string{"2", "msg:11:101"}, ids(page))

	cur, err = pagination.Decode(*next)
	require.NoError(t, err)
	page, next, err = bell.List(context.Background(), 1, false, cur, 2)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, []string{"1"}, ids(page))
}

func TestBellMessageItemShape(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	threads := &fakeThreads{
		threads: []models.Thread{{ID: 10, LastMessageAt: at}},
		latest:  map[uint]*models.Message{10: {ID: 100, ThreadID: 10, FromUserID: 4, Text: "hello", CreatedAt: at}},
	}
	bell := NewBell(&fakeNotifications{unread: 2}, threads)

	items, err := bell.MessageItems(context.Background(), 1, 20, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, models.NotifMessage, it.Type)
	assert.Equal(t, models.LevelActionable, it.Level)
	assert.Equal(t, "New message", it.Title)
	assert.Equal(t, "10", it.ContextID)
	assert.Equal(t, uint(4), *it.ActorUserID)
	assert.JSONEq(t, `{"threadId":10,"messageId":100}`, string(it.Data))

	unseen, err := bell.Unseen(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unseen.Count)
}

func TestBellUnreadOnly(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeNotifications{rows: []models.Notification{
		{ID: 1, CreatedAt: base.Add(-2 * time.Minute)},
		{ID: 2, IsRead: true, CreatedAt: base.Add(-time.Minute)},
		{ID: 3, CreatedAt: base},
	}}
	threads := &fakeThreads{
		threads: []models.Thread{{ID: 10, LastMessageAt: base.Add(-30 * time.Second)}},
		latest:  map[uint]*models.Message{10: {ID: 100, ThreadID: 10, FromUserID: 4, CreatedAt: base.Add(-30 * time.Second)}},
	}
	bell := NewBell(store, threads)

	page, next, err := bell.List(context.Background(), 1, true, nil, 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, []string{"3", "msg:10:100", "1"}, ids(page))

	page, _, err = bell.List(context.Background(), 1, false, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "msg:10:100", "2", "1"}, ids(page))
}

func TestUnseenLatestAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	threads := &fakeThreads{
		threads: []models.Thread{{ID: 10, LastMessageAt: base.Add(time.Hour)}},
		latest:  map[uint]*models.Message{10: {ID: 100, ThreadID: 10, FromUserID: 4, CreatedAt: base.Add(time.Hour)}},
	}

	unseen, err := NewBell(&fakeNotifications{}, threads).Unseen(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unseen.Count)
	assert.Nil(t, unseen.LatestAt)

	store := &fakeNotifications{unread: 1, rows: []models.Notification{
		{ID: 1, CreatedAt: base.Add(-time.Minute)},
		{ID: 2, IsRead: true, CreatedAt: base},
	}}
	unseen, err = NewBell(store, threads).Unseen(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unseen.Count)
	require.NotNil(t, unseen.LatestAt)
	assert.True(t, base.Equal(*unseen.LatestAt), "newest notification, not the newer message")

	raw, err := json.Marshal(unseen)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2,"latest_at":"2026-03-01T12:00:00Z"}`, string(raw))
}

func TestBellPagesAcrossEqualTimestamps(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeNotifications{rows: []models.Notification{
		{ID: 7, CreatedAt: at},
		{ID: 8, CreatedAt: at},
		{ID: 6, CreatedAt: at.Add(-time.Second)},
	}}
	threads := &fakeThreads{
		threads: []models.Thread{{ID: 10, LastMessageAt: at}},
		latest:  map[uint]*models.Message{10: {ID: 100, ThreadID: 10, FromUserID: 4, CreatedAt: at}},
	}
	bell := NewBell(store, threads)

	var seen []string
	var cur *pagination.Cursor
	sources := []string{}
	for i := 0; i < 10; i++ {
		page, next, err := bell.List(context.Background(), 1, false, cur, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		seen = append(seen, page[0].ID)
		sources = append(sources, page[0].Source)
		if next == nil {
			break
		}
		cur, err = pagination.Decode(*next)
		require.NoError(t, err)
		assert.Equal(t, page[0].ID, cur.ID)
	}
	assert.Equal(t, []string{"msg:10:100", "8", "7", "6"}, seen)
	assert.Equal(t, repositories.SourceMessage, sources[0])
}

func ids(items []BellItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
