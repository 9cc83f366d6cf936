package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSharedPostID(t *testing.T) {
	tests := []struct {
		name string
		text string
		id   string
		ok   bool
	}{
		{"payload", postPayload("65f0c0ffee"), "65f0c0ffee", true},
		{"padded payload", "  " + `{"type":"post","postId":"abc"}`, "abc", true},
		{"plain text", "see you on set", "", false},
		{"other type", `{"type":"brief","postId":"abc"}`, "", false},
		{"numeric id", `{"type":"post","postId":12}`, "", false},
		{"broken json", `{"type":"post",`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := sharedPostID(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestMessagePreview(t *testing.T) {
	assert.Equal(t, "Shared a post", messagePreview(postPayload("abc")))
	assert.Equal(t, "call time moved", messagePreview("call time moved"))
}

type fakeThreads struct {
	repositories.ThreadRepository
	threads  map[uint]*models.Thread
	messages []models.Message
	reads    map[[2]uint]time.Time
}

func newFakeThreads() *fakeThreads {
	return &fakeThreads{threads: map[uint]*models.Thread{}, reads: map[[2]uint]time.Time{}}
}

func (f *fakeThreads) GetThread(_ context.Context, id uint) (*models.Thread, error) {
	if t, ok := f.threads[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeThreads) GetOrCreateThread(_ context.Context, userIDs ...uint) (*models.Thread, error) {
	ids := make(pq.Int64Array, 0, len(userIDs))
	for _, id := range userIDs {
		ids = append(ids, int64(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	key := fmt.Sprint([]int64(ids))
	for _, t := range f.threads {
		if t.ParticipantKey == key {
			cp := *t
			return &cp, nil
		}
	}
	t := &models.Thread{ID: uint(len(f.threads) + 1), ParticipantIDs: ids, ParticipantKey: key}
	f.threads[t.ID] = t
	cp := *t
	return &cp, nil
}

func (f *fakeThreads) SendMessage(_ context.Context, msg *models.Message) error {
	msg.ID = uint(len(f.messages) + 1)
	msg.CreatedAt = time.Now()
	f.messages = append(f.messages, *msg)
	f.threads[msg.ThreadID].LastMessageAt = msg.CreatedAt
	return nil
}

func (f *fakeThreads) ListMessages(_ context.Context, threadID uint) ([]models.Message, error) {
	out := []models.Message{}
	for _, m := range f.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeThreads) MarkRead(_ context.Context, userID, threadID uint, at time.Time) error {
	f.reads[[2]uint{userID, threadID}] = at
	return nil
}

type dmFixture struct {
	h       *DMHandler
	threads *fakeThreads
	notes   *fakeNotifications
	post    models.Post
}

func newDMFixture() dmFixture {
	profiles := crewProfiles()
	post := newPost(20, "wrap party", time.Now().Add(-time.Hour))
	threads := newFakeThreads()
	notes := newFakeNotifications()
	users := newFakeUsers(models.User{ID: 1}, models.User{ID: 2}, models.User{ID: 3})
	h := NewDMHandler(threads, users, profiles, newFakePosts(post), notes,
		NewPostPresenter(profiles, newFakeLikes()), newNotifier(notes), zap.NewNop())
	return dmFixture{h: h, threads: threads, notes: notes, post: post}
}

func TestStartThreadReusesConversation(t *testing.T) {
	f := newDMFixture()

	_, err := call(t, f.h.StartThread, http.MethodPost, "/dm/threads", `{"user_id":1}`, 1)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Cannot DM yourself.", messageOf(t, err))

	_, err = call(t, f.h.StartThread, http.MethodPost, "/dm/threads", `{"user_id":404}`, 1)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	assert.Equal(t, "User not found", messageOf(t, err))
	assert.Empty(t, f.threads.threads)

	var first, second models.Thread
	rec, err := call(t, f.h.StartThread, http.MethodPost, "/dm/threads", `{"user_id":2}`, 1)
	require.NoError(t, err)
	decode(t, rec, &first)
	rec, err = call(t, f.h.StartThread, http.MethodPost, "/dm/threads", `{"user_id":1}`, 2)
	require.NoError(t, err)
	decode(t, rec, &second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, pq.Int64Array{1, 2}, second.ParticipantIDs)
}

func TestSendMessageNotifiesOtherParticipant(t *testing.T) {
	f := newDMFixture()
	thread, err := f.threads.GetOrCreateThread(context.Background(), 1, 2)
	require.NoError(t, err)
	id := fmt.Sprint(thread.ID)

	rec, err := call(t, f.h.SendMessage, http.MethodPost, "/dm/threads/"+id+"/messages", `{"text":"  call time is 6am  "}`, 1, "id", id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.threads.messages, 1)
	assert.Equal(t, "call time is 6am", f.threads.messages[0].Text)

	assert.Empty(t, f.notes.to(1))
	got := f.notes.to(2)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotifMessage, got[0].Type)
	assert.Equal(t, "New message from Ava", got[0].Title)
	assert.Equal(t, models.ContextThread, got[0].ContextType)
	assert.Equal(t, id, got[0].ContextID)

	_, err = call(t, f.h.SendMessage, http.MethodPost, "/dm/threads/"+id+"/messages", `{"text":"hi"}`, 3, "id", id)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = call(t, f.h.SendMessage, http.MethodPost, "/dm/threads/"+id+"/messages", `{"text":"   "}`, 1, "id", id)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestSharePostExpandsInThread(t *testing.T) {
	f := newDMFixture()
	postID := f.post.ID.Hex()

	body := fmt.Sprintf(`{"post_id":%q,"target_profile_ids":[20,10,20,99]}`, postID)
	rec, err := call(t, f.h.SharePost, http.MethodPost, "/dm/share-post", body, 1)
	require.NoError(t, err)
	var out struct {
		Threads []uint `json:"threads"`
	}
	decode(t, rec, &out)
	require.Len(t, out.Threads, 1)

	got := f.notes.to(2)
	require.Len(t, got, 1)
	assert.Equal(t, "Ava shared a post with you", got[0].Title)
	assert.Equal(t, "Shared a post", got[0].Body)

	id := fmt.Sprint(out.Threads[0])
	rec, err = call(t, f.h.ListMessages, http.MethodGet, "/dm/threads/"+id+"/messages", "", 2, "id", id)
	require.NoError(t, err)
	var list struct {
		Items []MessageView `json:"items"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "post", list.Items[0].Kind)
	assert.Empty(t, list.Items[0].Text)
	require.NotNil(t, list.Items[0].Post)
	assert.Equal(t, postID, list.Items[0].Post.ID.Hex())
}

func TestMarkReadClearsThreadNotifications(t *testing.T) {
	f := newDMFixture()
	thread, err := f.threads.GetOrCreateThread(context.Background(), 1, 2)
	require.NoError(t, err)
	id := fmt.Sprint(thread.ID)
	_, err = call(t, f.h.SendMessage, http.MethodPost, "/dm/threads/"+id+"/messages", `{"text":"lunch at 1"}`, 1, "id", id)
	require.NoError(t, err)
	require.Len(t, f.notes.to(2), 1)

	_, err = call(t, f.h.MarkRead, http.MethodPost, "/dm/threads/"+id+"/read", "", 2, "id", id)
	require.NoError(t, err)
	assert.True(t, f.notes.read[f.notes.to(2)[0].ID])
	assert.Contains(t, f.threads.reads, [2]uint{2, thread.ID})
}

func TestBulkSendPersonalizes(t *testing.T) {
	f := newDMFixture()

	_, err := call(t, f.h.BulkSend, http.MethodPost, "/dm/bulk", `{"profile_ids":[10],"text":"hi"}`, 7)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	rec, err := call(t, f.h.BulkSend, http.MethodPost, "/dm/bulk", `{"profile_ids":[20,30,10],"text":"Hey {firstName}, see {handle}"}`, 1)
	require.NoError(t, err)
	var out struct {
		Count   int          `json:"count"`
		Results []BulkResult `json:"results"`
	}
	decode(t, rec, &out)
	assert.Equal(t, 2, out.Count)
	require.Len(t, f.threads.messages, 2)
	assert.Equal(t, "Hey Ben, see ben", f.threads.messages[0].Text)
	assert.Equal(t, "Hey cleo, see cleo", f.threads.messages[1].Text)
	assert.Len(t, f.notes.to(3), 1)
}
