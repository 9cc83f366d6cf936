package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SavedHandler handles saved lists of posts and people
type SavedHandler struct {
	savedRepository   repositories.SavedRepository
	postRepository    repositories.PostRepository
	profileRepository repositories.ProfileRepository
	presenter         *PostPresenter
	log               *zap.Logger
}

// NewSavedHandler creates a new SavedHandler
func NewSavedHandler(
	savedRepo repositories.SavedRepository,
	postRepo repositories.PostRepository,
	profileRepo repositories.ProfileRepository,
	presenter *PostPresenter,
	log *zap.Logger,
) *SavedHandler {
	return &SavedHandler{
		savedRepository:   savedRepo,
		postRepository:    postRepo,
		profileRepository: profileRepo,
		presenter:         presenter,
		log:               log,
	}
}

// RegisterSavedRoutes registers saved list routes
func (h *SavedHandler) RegisterSavedRoutes(private *echo.Group) {
	private.GET("/saved/lists", h.MyLists)
	private.POST("/saved/lists", h.CreateList)
	private.GET("/saved/lists/:id", h.GetList)
	private.PATCH("/saved/lists/:id", h.RenameList)
	private.DELETE("/saved/lists/:id", h.DeleteList)
	private.GET("/saved/lists/:id/items", h.ListItems)
	private.GET("/saved/membership", h.Membership)
	private.POST("/saved/add-to-lists", h.AddToLists)
	private.POST("/saved/items", h.AddToList)
	private.POST("/saved/items/remove", h.RemoveFromList)
	private.POST("/saved/default/post", h.TogglePostInDefault)
	private.POST("/saved/default/profile", h.ToggleProfileInDefault)
}

var errNoTarget = echo.NewHTTPError(http.StatusBadRequest, "post_id or profile_id is required")

// targetKind is the list kind that can hold t.
func targetKind(t models.SaveTarget) (string, error) {
	switch {
	case t.PostID != "":
		return models.SavedKindPosts, nil
	case t.ProfileID != 0:
		return models.SavedKindPeople, nil
	}
	return "", errNoTarget
}

func kindMismatch(kind string) error {
	if kind == models.SavedKindPeople {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot save a post into a People list")
	}
	return echo.NewHTTPError(http.StatusBadRequest, "Cannot save a profile into a Posts list")
}

// ownList loads a list and checks the caller owns it.
func (h *SavedHandler) ownList(ctx context.Context, userID, listID uint) (*models.SavedList, error) {
	l, err := h.savedRepository.GetList(ctx, listID)
	if err != nil {
		return nil, storeError(h.log, err, "Saved list")
	}
	if l.UserID != userID {
		return nil, errForbidden
	}
	return l, nil
}

// MyLists lists the caller's lists with item counts, optionally by kind.
func (h *SavedHandler) MyLists(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	kind := strings.ToUpper(c.QueryParam("kind"))
	if kind != "" && kind != models.SavedKindPosts && kind != models.SavedKindPeople {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be POSTS or PEOPLE")
	}
	lists, err := h.savedRepository.ListLists(c.Request().Context(), userID, kind)
	if err != nil {
		return storeError(h.log, err, "Saved list")
	}
	return respond(c, http.StatusOK, echo.Map{"items": lists})
}

func (h *SavedHandler) CreateList(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateSavedListRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	list := &models.SavedList{UserID: userID, Name: strings.TrimSpace(req.Name), Kind: req.Kind}
	if err := h.savedRepository.CreateList(c.Request().Context(), list); err != nil {
		return storeError(h.log, err, "Saved list")
	}
	return respond(c, http.StatusCreated, list)
}

func (h *SavedHandler) RenameList(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	listID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.RenameSavedListRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	list, err := h.ownList(ctx, userID, listID)
	if err != nil {
		return err
	}
	list.Name = strings.TrimSpace(req.Name)
	if err := h.savedRepository.RenameList(ctx, list.ID, list.Name); err != nil {
		return storeError(h.log, err, "Saved list")
	}
	return respond(c, http.StatusOK, list)
}

func (h *SavedHandler) DeleteList(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	listID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.ownList(ctx, userID, listID); err != nil {
		return err
	}
	if err := h.savedRepository.DeleteList(ctx, listID); err != nil {
		return storeError(h.log, err, "Saved list")
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}

// SavedEntry is one hydrated list item.
type SavedEntry struct {
	ID        uint                   `json:"id"`
	Type      string                 `json:"type"`
	Post      *PostView              `json:"post,omitempty"`
	Profile   *models.ProfileCompact `json:"profile,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// hydrate resolves list items to posts and profiles, dropping missing targets.
func (h *SavedHandler) hydrate(ctx context.Context, items []models.SavedItem) ([]SavedEntry, error) {
	var postIDs []string
	var profileIDs []uint
	for _, it := range items {
		if it.PostID != nil {
			postIDs = append(postIDs, *it.PostID)
		}
		if it.ProfileID != nil {
			profileIDs = append(profileIDs, *it.ProfileID)
		}
	}

	posts := map[string]PostView{}
	if len(postIDs) > 0 {
		found, err := h.postRepository.GetPostsByIDs(ctx, postIDs)
		if err != nil {
			return nil, err
		}
		list := make([]models.Post, 0, len(found))
		for _, p := range found {
			list = append(list, p)
		}
		views, err := h.presenter.Views(ctx, list, true)
		if err != nil {
			return nil, err
		}
		for _, v := range views {
			posts[v.ID.Hex()] = v
		}
	}
	profiles := map[uint]models.Profile{}
	if len(profileIDs) > 0 {
		var err error
		if profiles, err = h.profileRepository.GetByIDs(ctx, profileIDs); err != nil {
			return nil, err
		}
	}

	out := make([]SavedEntry, 0, len(items))
	for _, it := range items {
		e := SavedEntry{ID: it.ID, CreatedAt: it.CreatedAt}
		switch {
		case it.PostID != nil:
			v, ok := posts[*it.PostID]
			if !ok {
				continue
			}
			e.Type, e.Post = "post", &v
		case it.ProfileID != nil:
			p, ok := profiles[*it.ProfileID]
			if !ok {
				continue
			}
			compact := p.ToCompact()
			e.Type, e.Profile = "profile", &compact
		default:
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// GetList returns a list with its items hydrated, newest first.
func (h *SavedHandler) GetList(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	listID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	list, err := h.ownList(ctx, userID, listID)
	if err != nil {
		return err
	}
	items, err := h.savedRepository.Items(ctx, list.ID)
	if err != nil {
		return storeError(h.log, err, "Saved item")
	}
	entries, err := h.hydrate(ctx, items)
	if err != nil {
		return storeError(h.log, err, "Saved item")
	}
	return respond(c, http.StatusOK, echo.Map{"list": list, "items": entries})
}

// ListItems splits a list into profiles and posts. Lists of other users read
// as empty.
func (h *SavedHandler) ListItems(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	listID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	profiles := []models.ProfileCompact{}
	posts := []PostView{}

	list, err := h.savedRepository.GetList(ctx, listID)
	if err != nil || list.UserID != userID {
		if err != nil && !isNotFound(err) {
			return storeError(h.log, err, "Saved list")
		}
		return respond(c, http.StatusOK, echo.Map{"profiles": profiles, "posts": posts})
	}
	items, err := h.savedRepository.Items(ctx, list.ID)
	if err != nil {
		return storeError(h.log, err, "Saved item")
	}
	entries, err := h.hydrate(ctx, items)
	if err != nil {
		return storeError(h.log, err, "Saved item")
	}
	for _, e := range entries {
		if e.Post != nil {
			posts = append(posts, *e.Post)
		}
		if e.Profile != nil {
			profiles = append(profiles, *e.Profile)
		}
	}
	return respond(c, http.StatusOK, echo.Map{"profiles": profiles, "posts": posts})
}

// Membership returns the ids of the caller's lists holding a target.
func (h *SavedHandler) Membership(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var target models.SaveTarget
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &target); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query")
	}
	kind, err := targetKind(target)
	if err != nil {
		return err
	}
	ids, err := h.savedRepository.ContainingLists(c.Request().Context(), userID, kind, target)
	if err != nil {
		return storeError(h.log, err, "Saved list")
	}
	return respond(c, http.StatusOK, echo.Map{"list_ids": ids})
}

// AddToLists saves a target into several of the caller's lists at once.
func (h *SavedHandler) AddToLists(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.AddToListsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	kind, err := targetKind(req.SaveTarget)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	ids := uniqueUints(req.ListIDs)
	lists, err := h.savedRepository.GetLists(ctx, ids)
	if err != nil {
		return storeError(h.log, err, "Saved list")
	}
	if len(lists) != len(ids) {
		return echo.NewHTTPError(http.StatusForbidden, "One or more lists not found")
	}
	for _, l := range lists {
		if l.UserID != userID {
			return echo.NewHTTPError(http.StatusForbidden, "One or more lists not found")
		}
		if l.Kind != kind {
			return kindMismatch(l.Kind)
		}
	}
	created, err := h.savedRepository.AddItems(ctx, ids, req.SaveTarget)
	if err != nil {
		return storeError(h.log, err, "Saved item")
	}
	return respond(c, http.StatusOK, echo.Map{"created": created})
}

// AddToList saves a target into one list.
func (h *SavedHandler) AddToList(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.ListItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	kind, err := targetKind(req.SaveTarget)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	list, err := h.ownList(ctx, userID, req.ListID)
	if err != nil {
		return err
	}
	if list.Kind != kind {
		return kindMismatch(list.Kind)
	}
	created, err := h.savedRepository.AddItems(ctx, []uint{list.ID}, req.SaveTarget)
	if err != nil {
		return storeError(h.log, err, "Saved item")
	}
	return respond(c, http.StatusOK, echo.Map{"created": created > 0})
}

func (h *SavedHandler) RemoveFromList(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.ListItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := targetKind(req.SaveTarget); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.ownList(ctx, userID, req.ListID); err != nil {
		return err
	}
	removed, err := h.savedRepository.RemoveItem(ctx, req.ListID, req.SaveTarget)
	if err != nil {
		return storeError(h.log, err, "Saved item")
	}
	return respond(c, http.StatusOK, echo.Map{"removed": removed > 0})
}

// toggleDefault flips target in the caller's favorites list of its kind.
func (h *SavedHandler) toggleDefault(c echo.Context, target models.SaveTarget) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	kind, err := targetKind(target)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	list, err := h.savedRepository.DefaultList(ctx, userID, kind)
	if err != nil {
		return storeError(h.log, err, "Saved list")
	}
	has, err := h.savedRepository.HasItem(ctx, list.ID, target)
	if err != nil {
		return storeError(h.log, err, "Saved item")
	}
	if has {
		_, err = h.savedRepository.RemoveItem(ctx, list.ID, target)
	} else {
		_, err = h.savedRepository.AddItems(ctx, []uint{list.ID}, target)
	}
	if err != nil {
		return storeError(h.log, err, "Saved item")
	}
	return respond(c, http.StatusOK, echo.Map{"saved": !has})
}

func (h *SavedHandler) TogglePostInDefault(c echo.Context) error {
	var req struct {
		PostID string `json:"post_id" validate:"required,len=24"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.toggleDefault(c, models.SaveTarget{PostID: req.PostID})
}

func (h *SavedHandler) ToggleProfileInDefault(c echo.Context) error {
	var req struct {
		ProfileID uint `json:"profile_id" validate:"required"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.toggleDefault(c, models.SaveTarget{ProfileID: req.ProfileID})
}

func uniqueUints(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
