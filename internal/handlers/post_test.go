package handlers

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func (f *fakePosts) CreatePost(_ context.Context, p *models.Post) error {
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now()
	cp := *p
	f.rows[p.ID.Hex()] = &cp
	return nil
}

func (f *fakePosts) DeletePost(_ context.Context, id string) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeLikes) ToggleLike(_ context.Context, postID string, userID uint) (bool, error) {
	if f.liked[postID] == nil {
		f.liked[postID] = map[uint]bool{}
	}
	if f.liked[postID][userID] {
		delete(f.liked[postID], userID)
		return false, nil
	}
	f.liked[postID][userID] = true
	return true, nil
}

func (f *fakeLikes) CountByPost(_ context.Context, postID string) (int64, error) {
	return int64(len(f.liked[postID])), nil
}

func (f *fakeLikes) LikedPostIDs(_ context.Context, userID uint, _ int) ([]string, error) {
	var ids []string
	for id, users := range f.liked {
		if users[userID] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeLikes) DeleteByPost(_ context.Context, postID string) error {
	delete(f.liked, postID)
	return nil
}

func (f *fakeComments) CountByPost(_ context.Context, postID string) (int64, error) {
	var n int64
	for _, cm := range f.rows {
		if cm.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (f *fakeComments) DeleteByPost(_ context.Context, postID string) error {
	kept := f.rows[:0]
	for _, cm := range f.rows {
		if cm.PostID != postID {
			kept = append(kept, cm)
		}
	}
	f.rows = kept
	return nil
}

type postFixture struct {
	h        *PostHandler
	posts    *fakePosts
	likes    *fakeLikes
	comments *fakeComments
}

func newPostFixture(posts ...models.Post) postFixture {
	profiles := crewProfiles()
	users := newFakeUsers(models.User{ID: 1, Name: "Ava"}, models.User{ID: 2, Name: "Ben"})
	f := postFixture{posts: newFakePosts(posts...), likes: newFakeLikes(), comments: &fakeComments{}}
	f.h = NewPostHandler(f.posts, f.likes, f.comments, NewProfileBootstrapper(users, profiles),
		NewPostPresenter(profiles, f.likes), zap.NewNop())
	return f
}

func TestCreatePostOrdersAssets(t *testing.T) {
	f := newPostFixture()
	body := `{"caption":"  wrap day ","tags":[" bts "],"files":[
		{"url":"https://cdn.example.com/2.jpg","order":2},
		{"url":"https://cdn.example.com/0.jpg","order":0,"alt_text":"slate"}]}`
	rec, err := call(t, f.h.CreatePost, http.MethodPost, "/posts", body, 1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var out PostView
	decode(t, rec, &out)
	assert.Equal(t, "wrap day", out.Caption)
	assert.Equal(t, []string{"bts"}, out.Tags)
	require.Len(t, out.Assets, 2)
	assert.Equal(t, "https://cdn.example.com/0.jpg", out.Assets[0].URL)
	assert.Equal(t, "slate", out.Assets[0].AltText)
	require.NotNil(t, out.Author)
	assert.Equal(t, "ava", out.Author.Handle)
	assert.Len(t, f.posts.rows, 1)
}

func TestCreatePostValidation(t *testing.T) {
	f := newPostFixture()
	for name, body := range map[string]string{
		"no files":       `{"caption":"hi","files":[]}`,
		"bad url":        `{"files":[{"url":"not a url"}]}`,
		"blank tag":      `{"tags":["  "],"files":[{"url":"https://cdn.example.com/a.jpg"}]}`,
		"negative order": `{"files":[{"url":"https://cdn.example.com/a.jpg","order":-1}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := call(t, f.h.CreatePost, http.MethodPost, "/posts", body, 1)
			assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
		})
	}
}

func TestToggleLikeAndDetail(t *testing.T) {
	post := newPost(20, "lighting test", time.Now())
	f := newPostFixture(post)
	id := post.ID.Hex()

	rec, err := call(t, f.h.ToggleLike, http.MethodPost, "/posts/"+id+"/like", "", 1, "id", id)
	require.NoError(t, err)
	var toggled struct {
		Liked     bool  `json:"liked"`
		LikeCount int64 `json:"like_count"`
	}
	decode(t, rec, &toggled)
	assert.True(t, toggled.Liked)
	assert.EqualValues(t, 1, toggled.LikeCount)

	rec, err = call(t, f.h.GetPost, http.MethodGet, "/posts/"+id, "", 1, "id", id)
	require.NoError(t, err)
	var detail PostDetail
	decode(t, rec, &detail)
	assert.True(t, detail.MyLike)
	assert.EqualValues(t, 1, detail.LikeCount)
	assert.Len(t, detail.Assets, 2)

	rec, err = call(t, f.h.GetPost, http.MethodGet, "/posts/"+id, "", 0, "id", id)
	require.NoError(t, err)
	decode(t, rec, &detail)
	assert.False(t, detail.MyLike)

	rec, err = call(t, f.h.ToggleLike, http.MethodPost, "/posts/"+id+"/like", "", 1, "id", id)
	require.NoError(t, err)
	decode(t, rec, &toggled)
	assert.False(t, toggled.Liked)
	assert.Zero(t, toggled.LikeCount)
}

func TestDeletePostAuthorOnly(t *testing.T) {
	post := newPost(10, "mine", time.Now())
	f := newPostFixture(post)
	id := post.ID.Hex()
	f.likes.liked[id] = map[uint]bool{2: true}
	f.comments.rows = []models.Comment{{ID: 1, PostID: id}, {ID: 2, PostID: "other"}}

	_, err := call(t, f.h.DeletePost, http.MethodDelete, "/posts/"+id, "", 2, "id", id)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	assert.Len(t, f.posts.rows, 1)

	_, err = call(t, f.h.DeletePost, http.MethodDelete, "/posts/"+id, "", 1, "id", id)
	require.NoError(t, err)
	assert.Empty(t, f.posts.rows)
	assert.Empty(t, f.likes.liked[id])
	require.Len(t, f.comments.rows, 1)
	assert.Equal(t, "other", f.comments.rows[0].PostID)

	_, err = call(t, f.h.DeletePost, http.MethodDelete, "/posts/"+id, "", 1, "id", id)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}
