package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/internal/textutil"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const notificationBodyLen = 180

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	profileRepository repositories.ProfileRepository
	notifier          *notify.Notifier
	log               *zap.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	profileRepo repositories.ProfileRepository,
	notifier *notify.Notifier,
	log *zap.Logger,
) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		profileRepository: profileRepo,
		notifier:          notifier,
		log:               log,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(public, private *echo.Group) {
	public.GET("/posts/:id/comments", h.ListComments)
	private.POST("/posts/:id/comments", h.CreateComment)
}

// CommentAuthor is the author block of a comment.
type CommentAuthor struct {
	UserID      uint   `json:"user_id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type CommentView struct {
	ID        uint           `json:"id"`
	PostID    string         `json:"post_id"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"created_at"`
	Author    *CommentAuthor `json:"author"`
}

func (h *CommentHandler) views(ctx context.Context, comments []models.Comment) ([]CommentView, error) {
	userIDs := make([]uint, 0, len(comments))
	for _, cm := range comments {
		userIDs = append(userIDs, cm.UserID)
	}
	authors := map[uint]models.Profile{}
	if len(userIDs) > 0 {
		var err error
		if authors, err = h.profileRepository.GetByUserIDs(ctx, userIDs); err != nil {
			return nil, err
		}
	}
	out := make([]CommentView, 0, len(comments))
	for _, cm := range comments {
		v := CommentView{ID: cm.ID, PostID: cm.PostID, Text: cm.Text, CreatedAt: cm.CreatedAt}
		if p, ok := authors[cm.UserID]; ok {
			v.Author = &CommentAuthor{UserID: p.UserID, DisplayName: p.DisplayName, Handle: p.Handle, AvatarURL: p.AvatarURL}
		}
		out = append(out, v)
	}
	return out, nil
}

// ListComments lists a post's comments oldest first.
func (h *CommentHandler) ListComments(c echo.Context) error {
	cursor, limit, err := pageParams(c, 20, 100)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	comments, err := h.commentRepository.ListByPost(ctx, c.Param("id"), cursor, limit)
	if err != nil {
		return storeError(h.log, err, "Comment")
	}
	page, next := pagination.Trim(comments, limit, func(cm models.Comment) pagination.Cursor {
		return pagination.TimeKey(cm.CreatedAt, cm.ID)
	})
	views, err := h.views(ctx, page)
	if err != nil {
		return storeError(h.log, err, "Comment")
	}
	return respondPage(c, echo.Map{"items": views}, next)
}

// CreateComment comments on a post and notifies its author and any mentioned
// profiles.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := c.Param("id")

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return storeError(h.log, err, "Post")
	}

	comment := &models.Comment{PostID: postID, UserID: userID, Text: strings.TrimSpace(req.Text)}
	if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return storeError(h.log, err, "Comment")
	}

	h.notifyComment(ctx, userID, post, comment)

	views, err := h.views(ctx, []models.Comment{*comment})
	if err != nil {
		return storeError(h.log, err, "Comment")
	}
	return respond(c, http.StatusCreated, views[0])
}

func (h *CommentHandler) notifyComment(ctx context.Context, userID uint, post *models.Post, comment *models.Comment) {
	base := notify.Input{
		Body:        textutil.Truncate(comment.Text, notificationBodyLen),
		ContextType: models.ContextPost,
		ContextID:   comment.PostID,
		ActorUserID: userID,
		Data:        map[string]interface{}{"commentId": comment.ID},
	}

	var authorUserID uint
	if author, err := h.profileRepository.GetByID(ctx, post.AuthorProfileID); err == nil {
		authorUserID = author.UserID
	} else {
		h.log.Warn("post author lookup failed", zap.Uint("profile_id", post.AuthorProfileID), zap.Error(err))
	}
	if authorUserID != 0 && authorUserID != userID {
		in := base
		in.Type = models.NotifComment
		in.Title = "New comment on your post"
		if _, err := h.notifier.Notify(ctx, authorUserID, in); err != nil {
			h.log.Error("comment notification failed", zap.Error(err))
		}
	}

	handles := textutil.Mentions(comment.Text)
	if len(handles) == 0 {
		return
	}
	mentioned, err := h.profileRepository.GetByHandles(ctx, handles)
	if err != nil {
		h.log.Error("mention lookup failed", zap.Error(err))
		return
	}
	recipients := make([]uint, 0, len(mentioned))
	for _, p := range mentioned {
		if p.UserID != userID && p.UserID != authorUserID {
			recipients = append(recipients, p.UserID)
		}
	}
	in := base
	in.Type = models.NotifMention
	in.Title = "You were mentioned in a comment"
	h.notifier.NotifyMany(ctx, recipients, in)
}
