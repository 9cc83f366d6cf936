package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxFeedLimit = 50

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	postRepository    repositories.PostRepository
	profileRepository repositories.ProfileRepository
	followRepository  repositories.FollowRepository
	likeRepository    repositories.LikeRepository
	presenter         *PostPresenter
	log               *zap.Logger
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	postRepo repositories.PostRepository,
	profileRepo repositories.ProfileRepository,
	followRepo repositories.FollowRepository,
	likeRepo repositories.LikeRepository,
	presenter *PostPresenter,
	log *zap.Logger,
) *FeedHandler {
	return &FeedHandler{
		postRepository:    postRepo,
		profileRepository: profileRepo,
		followRepository:  followRepo,
		likeRepository:    likeRepo,
		presenter:         presenter,
		log:               log,
	}
}

// RegisterFeedRoutes registers feed routes
func (h *FeedHandler) RegisterFeedRoutes(public, private *echo.Group) {
	private.GET("/feed/home", h.Home)
	public.GET("/feed/discover", h.Discover)
	public.GET("/feed/author/:profileId", h.ByAuthor)
	private.GET("/feed/following", h.FollowingOnly)
	private.GET("/feed/liked", h.LikedByMe)
}

// profileOf returns the caller's profile, or nil when they have none yet.
func profileOf(ctx context.Context, profiles repositories.ProfileRepository, userID uint) (*models.Profile, error) {
	p, err := profiles.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (h *FeedHandler) list(c echo.Context, q repositories.PostQuery, def int) error {
	cursor, limit, err := pageParams(c, def, maxFeedLimit)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	posts, err := h.postRepository.ListPosts(ctx, q, cursor, limit)
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	page, next := pagination.Trim(posts, limit, postKey)
	views, err := h.presenter.Views(ctx, page, true)
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	return respondPage(c, echo.Map{"items": views}, next)
}

// Home lists posts from the caller and the profiles they follow.
func (h *FeedHandler) Home(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	me, err := profileOf(ctx, h.profileRepository, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	authors := []uint{}
	if me != nil {
		following, err := h.followRepository.GetFollowingIDs(ctx, me.ID)
		if err != nil {
			return storeError(h.log, err, "Follow")
		}
		authors = append(append(authors, me.ID), following...)
	}
	return h.list(c, repositories.PostQuery{AuthorIn: authors}, 15)
}

// Discover searches public posts, excluding the caller's own network.
func (h *FeedHandler) Discover(c echo.Context) error {
	ctx := c.Request().Context()
	q := repositories.PostQuery{}

	if userID, err := currentUser(c); err == nil {
		me, err := profileOf(ctx, h.profileRepository, userID)
		if err != nil {
			return storeError(h.log, err, "Profile")
		}
		if me != nil {
			following, err := h.followRepository.GetFollowingIDs(ctx, me.ID)
			if err != nil {
				return storeError(h.log, err, "Follow")
			}
			q.AuthorNotIn = append([]uint{me.ID}, following...)
		}
	}

	if text := strings.TrimSpace(c.QueryParam("q")); text != "" {
		ids, err := h.profileRepository.MatchingIDs(ctx, text, repositories.ProfileSearch{})
		if err != nil {
			return storeError(h.log, err, "Profile")
		}
		q.Text, q.TextAuthors = text, ids
	}

	facets := repositories.ProfileSearch{
		Profession: strings.TrimSpace(c.QueryParam("profession")),
		City:       strings.TrimSpace(c.QueryParam("city")),
		Region:     strings.TrimSpace(c.QueryParam("region")),
	}
	if facets.Profession != "" || facets.City != "" || facets.Region != "" {
		ids, err := h.profileRepository.MatchingIDs(ctx, "", facets)
		if err != nil {
			return storeError(h.log, err, "Profile")
		}
		q.AuthorIn = ids
		if q.AuthorIn == nil {
			q.AuthorIn = []uint{}
		}
	}
	q.AnyTags = tagsParam(c)

	return h.list(c, q, 15)
}

// tagsParam accepts ?tags=a,b and repeated ?tags=.
func tagsParam(c echo.Context) []string {
	var tags []string
	for _, raw := range c.QueryParams()["tags"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// ByAuthor lists one profile's posts.
func (h *FeedHandler) ByAuthor(c echo.Context) error {
	profileID, err := strconv.ParseUint(c.Param("profileId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid profileId")
	}
	return h.list(c, repositories.PostQuery{AuthorIn: []uint{uint(profileID)}}, 18)
}

// FollowingOnly lists posts from followed profiles only.
func (h *FeedHandler) FollowingOnly(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	me, err := profileOf(ctx, h.profileRepository, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	following := []uint{}
	if me != nil {
		if following, err = h.followRepository.GetFollowingIDs(ctx, me.ID); err != nil {
			return storeError(h.log, err, "Follow")
		}
		if following == nil {
			following = []uint{}
		}
	}
	return h.list(c, repositories.PostQuery{AuthorIn: following}, 12)
}

// LikedByMe lists posts the caller liked.
func (h *FeedHandler) LikedByMe(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ids, err := h.likeRepository.LikedPostIDs(c.Request().Context(), userID, repositories.MaxLikedPosts)
	if err != nil {
		return storeError(h.log, err, "Like")
	}
	if ids == nil {
		ids = []string{}
	}
	return h.list(c, repositories.PostQuery{IDs: ids}, 18)
}
