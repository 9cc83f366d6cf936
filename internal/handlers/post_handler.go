package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository    repositories.PostRepository
	likeRepository    repositories.LikeRepository
	commentRepository repositories.CommentRepository
	profiles          *ProfileBootstrapper
	presenter         *PostPresenter
	log               *zap.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	likeRepo repositories.LikeRepository,
	commentRepo repositories.CommentRepository,
	profiles *ProfileBootstrapper,
	presenter *PostPresenter,
	log *zap.Logger,
) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		likeRepository:    likeRepo,
		commentRepository: commentRepo,
		profiles:          profiles,
		presenter:         presenter,
		log:               log,
	}
}

// RegisterPostRoutes registers post routes on the public and authenticated groups.
func (h *PostHandler) RegisterPostRoutes(public, private *echo.Group) {
	private.POST("/posts", h.CreatePost)
	private.GET("/posts/mine", h.MyPosts)
	public.GET("/posts/:id", h.GetPost)
	private.POST("/posts/:id/like", h.ToggleLike)
	private.DELETE("/posts/:id", h.DeletePost)
}

// CreatePost creates a new post for the caller's profile.
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	profile, err := h.profiles.EnsureProfile(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}

	assets := make([]models.PostAsset, len(req.Files))
	for i, f := range req.Files {
		order := i
		if f.Order != nil {
			order = *f.Order
		}
		assets[i] = models.PostAsset{URL: f.URL, AltText: strings.TrimSpace(f.AltText), Order: order}
	}
	sort.SliceStable(assets, func(i, j int) bool { return assets[i].Order < assets[j].Order })

	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		tags = append(tags, strings.TrimSpace(t))
	}

	post := &models.Post{
		AuthorProfileID: profile.ID,
		Caption:         strings.TrimSpace(req.Caption),
		Tags:            tags,
		Assets:          assets,
	}
	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return storeError(h.log, err, "Post")
	}

	author := profile.ToCompact()
	return respond(c, http.StatusCreated, PostView{Post: *post, Author: &author})
}

// MyPosts lists the caller's posts with all assets.
func (h *PostHandler) MyPosts(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	cursor, limit, err := pageParams(c, pagination.DefaultLimit, 50)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	profile, err := h.profiles.EnsureProfile(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}

	posts, err := h.postRepository.ListPosts(ctx, repositories.PostQuery{AuthorIn: []uint{profile.ID}}, cursor, limit)
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	page, next := pagination.Trim(posts, limit, postKey)
	views, err := h.presenter.Views(ctx, page, false)
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	return respondPage(c, echo.Map{"items": views}, next)
}

// PostDetail is a post page.
type PostDetail struct {
	PostView
	CommentCount int64 `json:"comment_count"`
	MyLike       bool  `json:"my_like"`
}

// GetPost returns a post with counts. Anonymous callers get my_like=false.
func (h *PostHandler) GetPost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	view, err := h.presenter.View(ctx, *post, false)
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	comments, err := h.commentRepository.CountByPost(ctx, post.ID.Hex())
	if err != nil {
		return storeError(h.log, err, "Comment")
	}
	detail := PostDetail{PostView: *view, CommentCount: comments}
	if userID, err := currentUser(c); err == nil {
		if detail.MyLike, err = h.likeRepository.HasUserLikedPost(ctx, post.ID.Hex(), userID); err != nil {
			return storeError(h.log, err, "Like")
		}
	}
	return respond(c, http.StatusOK, detail)
}

// ToggleLike flips the caller's like.
func (h *PostHandler) ToggleLike(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	postID := post.ID.Hex()

	liked, err := h.likeRepository.ToggleLike(ctx, postID, userID)
	if err != nil {
		return storeError(h.log, err, "Like")
	}
	count, err := h.likeRepository.CountByPost(ctx, postID)
	if err != nil {
		return storeError(h.log, err, "Like")
	}
	return respond(c, http.StatusOK, echo.Map{"liked": liked, "like_count": count})
}

// DeletePost removes the caller's post with its likes and comments.
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return storeError(h.log, err, "Post")
	}
	profile, err := h.profiles.EnsureProfile(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	if post.AuthorProfileID != profile.ID {
		return echo.NewHTTPError(http.StatusForbidden, "You can only delete your own posts")
	}

	postID := post.ID.Hex()
	if err := h.likeRepository.DeleteByPost(ctx, postID); err != nil {
		return storeError(h.log, err, "Like")
	}
	if err := h.commentRepository.DeleteByPost(ctx, postID); err != nil {
		return storeError(h.log, err, "Comment")
	}
	if err := h.postRepository.DeletePost(ctx, postID); err != nil {
		return storeError(h.log, err, "Post")
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}

func postKey(p models.Post) pagination.Cursor {
	return pagination.ObjectKey(p.CreatedAt, p.ID)
}
