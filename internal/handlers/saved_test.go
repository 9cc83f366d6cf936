package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSaved struct {
	repositories.SavedRepository
	lists  map[uint]*models.SavedList
	items  []models.SavedItem
	nextID uint
}

func newFakeSaved(lists ...models.SavedList) *fakeSaved {
	f := &fakeSaved{lists: map[uint]*models.SavedList{}}
	for i := range lists {
		l := lists[i]
		f.lists[l.ID] = &l
		if l.ID > f.nextID {
			f.nextID = l.ID
		}
	}
	return f
}

func sameTarget(it models.SavedItem, t models.SaveTarget) bool {
	if t.PostID != "" {
		return it.PostID != nil && *it.PostID == t.PostID
	}
	return it.ProfileID != nil && *it.ProfileID == t.ProfileID
}

func (f *fakeSaved) GetList(_ context.Context, id uint) (*models.SavedList, error) {
	if l, ok := f.lists[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeSaved) GetLists(_ context.Context, ids []uint) ([]models.SavedList, error) {
	out := []models.SavedList{}
	for _, id := range ids {
		if l, ok := f.lists[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeSaved) CreateList(_ context.Context, l *models.SavedList) error {
	f.nextID++
	l.ID = f.nextID
	l.CreatedAt = time.Now()
	cp := *l
	f.lists[l.ID] = &cp
	return nil
}

func (f *fakeSaved) RenameList(_ context.Context, id uint, name string) error {
	f.lists[id].Name = name
	return nil
}

func (f *fakeSaved) DefaultList(ctx context.Context, userID uint, kind string) (*models.SavedList, error) {
	name := models.DefaultPostsListName
	if kind == models.SavedKindPeople {
		name = models.DefaultPeopleListName
	}
	for _, l := range f.lists {
		if l.UserID == userID && l.Kind == kind && l.Name == name {
			cp := *l
			return &cp, nil
		}
	}
	l := &models.SavedList{UserID: userID, Kind: kind, Name: name}
	return l, f.CreateList(ctx, l)
}

func (f *fakeSaved) Items(_ context.Context, listID uint) ([]models.SavedItem, error) {
	out := []models.SavedItem{}
	for _, it := range f.items {
		if it.ListID == listID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeSaved) HasItem(_ context.Context, listID uint, t models.SaveTarget) (bool, error) {
	for _, it := range f.items {
		if it.ListID == listID && sameTarget(it, t) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSaved) AddItems(ctx context.Context, listIDs []uint, t models.SaveTarget) (int64, error) {
	var n int64
	for _, id := range listIDs {
		if has, _ := f.HasItem(ctx, id, t); has {
			continue
		}
		it := models.SavedItem{ID: uint(len(f.items) + 1), ListID: id, CreatedAt: time.Now()}
		if t.PostID != "" {
			postID := t.PostID
			it.PostID = &postID
		} else {
			profileID := t.ProfileID
			it.ProfileID = &profileID
		}
		f.items = append(f.items, it)
		n++
	}
	return n, nil
}

func (f *fakeSaved) RemoveItem(_ context.Context, listID uint, t models.SaveTarget) (int64, error) {
	var n int64
	kept := f.items[:0]
	for _, it := range f.items {
		if it.ListID == listID && sameTarget(it, t) {
			n++
			continue
		}
		kept = append(kept, it)
	}
	f.items = kept
	return n, nil
}

// savedFixture: user 1 owns lists 1 (POSTS) and 2 (PEOPLE); user 2 owns list 3.
func savedFixture(posts ...models.Post) (*SavedHandler, *fakeSaved) {
	saved := newFakeSaved(
		models.SavedList{ID: 1, UserID: 1, Name: "Lighting refs", Kind: models.SavedKindPosts},
		models.SavedList{ID: 2, UserID: 1, Name: "Gaffers", Kind: models.SavedKindPeople},
		models.SavedList{ID: 3, UserID: 2, Name: "Mine", Kind: models.SavedKindPosts},
	)
	profiles := crewProfiles()
	likes := newFakeLikes()
	return NewSavedHandler(saved, newFakePosts(posts...), profiles, NewPostPresenter(profiles, likes), zap.NewNop()), saved
}

func TestAddToListIsKindSafe(t *testing.T) {
	post := newPost(20, "haze test", time.Now())
	h, saved := savedFixture(post)
	id := post.ID.Hex()

	rec, err := call(t, h.AddToList, http.MethodPost, "/saved/items", `{"list_id":1,"post_id":"`+id+`"}`, 1)
	require.NoError(t, err)
	var out struct {
		Created bool `json:"created"`
	}
	decode(t, rec, &out)
	assert.True(t, out.Created)

	rec, err = call(t, h.AddToList, http.MethodPost, "/saved/items", `{"list_id":1,"post_id":"`+id+`"}`, 1)
	require.NoError(t, err)
	decode(t, rec, &out)
	assert.False(t, out.Created)

	_, err = call(t, h.AddToList, http.MethodPost, "/saved/items", `{"list_id":2,"post_id":"`+id+`"}`, 1)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Cannot save a post into a People list", messageOf(t, err))

	_, err = call(t, h.AddToList, http.MethodPost, "/saved/items", `{"list_id":3,"post_id":"`+id+`"}`, 1)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = call(t, h.AddToList, http.MethodPost, "/saved/items", `{"list_id":1}`, 1)
	assert.Error(t, err)
	assert.Len(t, saved.items, 1)
}

func TestAddToListsChecksEveryList(t *testing.T) {
	h, saved := savedFixture()

	_, err := call(t, h.AddToLists, http.MethodPost, "/saved/add-to-lists", `{"list_ids":[2,3],"profile_id":30}`, 1)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = call(t, h.AddToLists, http.MethodPost, "/saved/add-to-lists", `{"list_ids":[1,2],"profile_id":30}`, 1)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	rec, err := call(t, h.AddToLists, http.MethodPost, "/saved/add-to-lists", `{"list_ids":[2,2],"profile_id":30}`, 1)
	require.NoError(t, err)
	var out struct {
		Created int64 `json:"created"`
	}
	decode(t, rec, &out)
	assert.EqualValues(t, 1, out.Created)
	assert.Len(t, saved.items, 1)
}

func TestListItemsOfOtherUserReadEmpty(t *testing.T) {
	post := newPost(20, "haze test", time.Now())
	h, saved := savedFixture(post)
	postID := post.ID.Hex()
	saved.items = []models.SavedItem{{ID: 1, ListID: 3, PostID: &postID}}

	for _, userID := range []uint{1, 2} {
		rec, err := call(t, h.ListItems, http.MethodGet, "/saved/lists/3/items", "", userID, "id", "3")
		require.NoError(t, err)
		var out struct {
			Profiles []models.ProfileCompact `json:"profiles"`
			Posts    []PostView              `json:"posts"`
		}
		decode(t, rec, &out)
		if userID == 2 {
			require.Len(t, out.Posts, 1)
			assert.Equal(t, "haze test", out.Posts[0].Caption)
		} else {
			assert.Empty(t, out.Posts)
		}
		assert.NotNil(t, out.Profiles)
	}
}

func TestRenameListOwnerOnly(t *testing.T) {
	h, saved := savedFixture()

	_, err := call(t, h.RenameList, http.MethodPatch, "/saved/lists/3", `{"name":"Nope"}`, 1, "id", "3")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = call(t, h.RenameList, http.MethodPatch, "/saved/lists/1", `{"name":"  Haze refs "}`, 1, "id", "1")
	require.NoError(t, err)
	assert.Equal(t, "Haze refs", saved.lists[1].Name)
}

func TestToggleProfileInDefault(t *testing.T) {
	h, saved := savedFixture()

	var out struct {
		Saved bool `json:"saved"`
	}
	rec, err := call(t, h.ToggleProfileInDefault, http.MethodPost, "/saved/default/profile", `{"profile_id":20}`, 1)
	require.NoError(t, err)
	decode(t, rec, &out)
	assert.True(t, out.Saved)
	require.Len(t, saved.lists, 4)

	rec, err = call(t, h.ToggleProfileInDefault, http.MethodPost, "/saved/default/profile", `{"profile_id":20}`, 1)
	require.NoError(t, err)
	decode(t, rec, &out)
	assert.False(t, out.Saved)
	assert.Len(t, saved.lists, 4, "the favorites list is reused")
	assert.Empty(t, saved.items)
}
