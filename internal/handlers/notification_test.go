package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPrefsDefaultsAndUpdate(t *testing.T) {
	store := newFakeNotifications()
	h := NewNotificationHandler(store, nil, notify.NewMemoryBus(), zap.NewNop())

	rec, err := call(t, h.GetPrefs, http.MethodGet, "/notifications/prefs", "", 3)
	require.NoError(t, err)
	var p models.NotificationPref
	decode(t, rec, &p)
	assert.True(t, p.EmailEnabled)
	assert.Equal(t, "off", p.Digest)
	assert.JSONEq(t, `{}`, string(p.Categories))

	rec, err = call(t, h.SetPrefs, http.MethodPut, "/notifications/prefs",
		`{"email_enabled":false,"digest":"weekly","quiet_start":"22:00","categories":{"PROJECT":false}}`, 3)
	require.NoError(t, err)
	decode(t, rec, &p)
	assert.False(t, p.EmailEnabled)
	assert.Equal(t, "22:00", p.QuietStart)

	saved := store.prefs[3]
	require.NotNil(t, saved)
	assert.Equal(t, "weekly", saved.Digest)
	assert.JSONEq(t, `{"PROJECT":false}`, string(saved.Categories))

	_, err = call(t, h.SetPrefs, http.MethodPut, "/notifications/prefs", `{"digest":"hourly"}`, 3)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	_, err = call(t, h.SetPrefs, http.MethodPut, "/notifications/prefs", `{"categories":[1]}`, 3)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestMarkAsReadOwnOnly(t *testing.T) {
	store := newFakeNotifications()
	require.NoError(t, store.CreateNotification(context.Background(), &models.Notification{UserID: 5, Title: "hi"}))
	h := NewNotificationHandler(store, nil, notify.NewMemoryBus(), zap.NewNop())

	_, err := call(t, h.MarkAsRead, http.MethodPost, "/notifications/1/read", "", 6, "id", "1")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	assert.False(t, store.read[1])

	_, err = call(t, h.MarkAsRead, http.MethodPost, "/notifications/1/read", "", 5, "id", "1")
	require.NoError(t, err)
	assert.True(t, store.read[1])

	_, err = call(t, h.MarkAsRead, http.MethodPost, "/notifications/9/read", "", 5, "id", "9")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestMarkContextRead(t *testing.T) {
	store := newFakeNotifications()
	ctx := context.Background()
	for _, n := range []models.Notification{
		{UserID: 5, ContextType: "thread", ContextID: "7"},
		{UserID: 5, ContextType: "thread", ContextID: "7"},
		{UserID: 5, ContextType: "thread", ContextID: "8"},
	} {
		n := n
		require.NoError(t, store.CreateNotification(ctx, &n))
	}
	h := NewNotificationHandler(store, nil, notify.NewMemoryBus(), zap.NewNop())

	rec, err := call(t, h.MarkContextRead, http.MethodPost, "/notifications/context-read", `{"context_type":"thread","context_id":"7"}`, 5)
	require.NoError(t, err)
	var out struct {
		Updated int64 `json:"updated"`
	}
	decode(t, rec, &out)
	assert.EqualValues(t, 2, out.Updated)
}

func TestStreamSendsHelloAndUnsubscribes(t *testing.T) {
	bus := notify.NewMemoryBus()
	h := NewNotificationHandler(newFakeNotifications(), nil, bus, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/notifications/stream", nil).WithContext(ctx)
	rec, err := serveRequest(t, h.Stream, req, 4)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `data: {"kind":"hello"}`)
	assert.Contains(t, rec.Body.String(), "retry: 3000")
	assert.Zero(t, bus.Subscribers(4))
}

func TestStreamDeliversPublishedEvent(t *testing.T) {
	bus := notify.NewMemoryBus()
	h := NewNotificationHandler(newFakeNotifications(), nil, bus, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/notifications/stream", nil).WithContext(ctx)
	done := make(chan *httptest.ResponseRecorder)
	go func() {
		rec, _ := serveRequest(t, h.Stream, req, 4)
		done <- rec
	}()

	require.Eventually(t, func() bool { return bus.Subscribers(4) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), 4, notify.Event{
		Kind:         notify.EventNew,
		Notification: &models.Notification{ID: 12, UserID: 4, Title: "Ben followed you"},
	}))
	// give the stream a moment to write before hanging up
	time.Sleep(20 * time.Millisecond)
	cancel()

	rec := <-done
	assert.Contains(t, rec.Body.String(), `"kind":"new"`)
	assert.Contains(t, rec.Body.String(), "Ben followed you")
	assert.Zero(t, bus.Subscribers(4))
}
