package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/anonto42/bizgram/backend/internal/pagination"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/internal/textutil"
	"github.com/anonto42/bizgram/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	messageNotifyLen = 140
	sharedPostLabel  = "Shared a post"
)

// DMHandler handles direct-message HTTP requests
type DMHandler struct {
	threadRepository       repositories.ThreadRepository
	userRepository         repositories.UserRepository
	profileRepository      repositories.ProfileRepository
	postRepository         repositories.PostRepository
	notificationRepository repositories.NotificationRepository
	presenter              *PostPresenter
	notifier               *notify.Notifier
	log                    *zap.Logger
}

// NewDMHandler creates a new DMHandler
func NewDMHandler(
	threadRepo repositories.ThreadRepository,
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	postRepo repositories.PostRepository,
	notificationRepo repositories.NotificationRepository,
	presenter *PostPresenter,
	notifier *notify.Notifier,
	log *zap.Logger,
) *DMHandler {
	return &DMHandler{
		threadRepository:       threadRepo,
		userRepository:         userRepo,
		profileRepository:      profileRepo,
		postRepository:         postRepo,
		notificationRepository: notificationRepo,
		presenter:              presenter,
		notifier:               notifier,
		log:                    log,
	}
}

// RegisterDMRoutes registers direct-message routes
func (h *DMHandler) RegisterDMRoutes(private *echo.Group) {
	private.GET("/dm/recipients", h.Recipients)
	private.GET("/dm/threads", h.ListThreads)
	private.POST("/dm/threads", h.StartThread)
	private.GET("/dm/threads/:id", h.GetThread)
	private.GET("/dm/threads/:id/messages", h.ListMessages)
	private.POST("/dm/threads/:id/messages", h.SendMessage)
	private.POST("/dm/threads/:id/read", h.MarkRead)
	private.POST("/dm/share-post", h.SharePost)
	private.POST("/dm/bulk", h.BulkSend)
}

// postPayload is the message text of a shared post.
func postPayload(postID string) string {
	raw, _ := json.Marshal(map[string]string{"type": "post", "postId": postID})
	return string(raw)
}

// sharedPostID returns the post id when text is a shared-post payload.
func sharedPostID(text string) (string, bool) {
	if !strings.HasPrefix(strings.TrimSpace(text), "{") || !gjson.Valid(text) {
		return "", false
	}
	doc := gjson.Parse(text)
	if doc.Get("type").String() != "post" {
		return "", false
	}
	id := doc.Get("postId")
	if id.Type != gjson.String || id.String() == "" {
		return "", false
	}
	return id.String(), true
}

func messagePreview(text string) string {
	if _, ok := sharedPostID(text); ok {
		return sharedPostLabel
	}
	return text
}

// Recipients lists profiles the caller can message.
func (h *DMHandler) Recipients(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	limit := pagination.ClampLimit(c.QueryParam("limit"), 20, 50)
	profiles, err := h.profileRepository.Recipients(c.Request().Context(), c.QueryParam("q"), userID, limit)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	out := make([]models.ProfileCompact, 0, len(profiles))
	for i := range profiles {
		out = append(out, profiles[i].ToCompact())
	}
	return respond(c, http.StatusOK, echo.Map{"items": out})
}

type ThreadSummary struct {
	ID            uint                   `json:"id"`
	Other         *models.ProfileCompact `json:"other"`
	LastMessageAt time.Time              `json:"last_message_at"`
	Preview       string                 `json:"preview"`
}

// ListThreads lists the caller's conversations, most recent first.
func (h *DMHandler) ListThreads(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	threads, err := h.threadRepository.ListThreads(ctx, userID, 0)
	if err != nil {
		return storeError(h.log, err, "Thread")
	}

	threadIDs := make([]uint, 0, len(threads))
	var others []uint
	for i := range threads {
		threadIDs = append(threadIDs, threads[i].ID)
		others = append(others, threads[i].Others(userID)...)
	}
	profiles := map[uint]models.Profile{}
	if len(others) > 0 {
		if profiles, err = h.profileRepository.GetByUserIDs(ctx, others); err != nil {
			return storeError(h.log, err, "Profile")
		}
	}
	last, err := h.threadRepository.LastMessages(ctx, threadIDs)
	if err != nil {
		return storeError(h.log, err, "Message")
	}

	out := make([]ThreadSummary, 0, len(threads))
	for i := range threads {
		t := &threads[i]
		s := ThreadSummary{ID: t.ID, LastMessageAt: t.LastMessageAt}
		for _, id := range t.Others(userID) {
			if p, ok := profiles[id]; ok {
				compact := p.ToCompact()
				s.Other = &compact
				break
			}
		}
		if m, ok := last[t.ID]; ok {
			s.Preview = messagePreview(m.Text)
		}
		out = append(out, s)
	}
	return respond(c, http.StatusOK, echo.Map{"items": out})
}

// participantThread loads a thread and checks the caller is in it.
func (h *DMHandler) participantThread(c echo.Context, userID uint) (*models.Thread, error) {
	threadID, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	t, err := h.threadRepository.GetThread(c.Request().Context(), threadID)
	if err != nil {
		return nil, storeError(h.log, err, "Thread")
	}
	if !t.HasParticipant(userID) {
		return nil, errForbidden
	}
	return t, nil
}

// GetThread returns the participants and every message of a thread.
func (h *DMHandler) GetThread(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	t, err := h.participantThread(c, userID)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	ids := make([]uint, 0, len(t.ParticipantIDs))
	for _, id := range t.ParticipantIDs {
		ids = append(ids, uint(id))
	}
	profiles, err := h.profileRepository.GetByUserIDs(ctx, ids)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	participants := make([]models.ProfileCompact, 0, len(ids))
	for _, id := range ids {
		if p, ok := profiles[id]; ok {
			participants = append(participants, p.ToCompact())
		}
	}
	messages, err := h.threadRepository.ListMessages(ctx, t.ID)
	if err != nil {
		return storeError(h.log, err, "Message")
	}
	return respond(c, http.StatusOK, echo.Map{
		"thread":       t,
		"participants": participants,
		"messages":     messages,
	})
}

// StartThread returns the caller's thread with another user, creating it.
func (h *DMHandler) StartThread(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.StartThreadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.UserID == userID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot DM yourself.")
	}
	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByID(ctx, req.UserID); err != nil {
		return storeError(h.log, err, "User")
	}
	t, err := h.threadRepository.GetOrCreateThread(ctx, userID, req.UserID)
	if err != nil {
		return storeError(h.log, err, "Thread")
	}
	return respond(c, http.StatusOK, t)
}

// send stores one message and counts it.
func (h *DMHandler) send(ctx context.Context, threadID, from uint, text string) (*models.Message, error) {
	msg := &models.Message{ThreadID: threadID, FromUserID: from, Text: text}
	if err := h.threadRepository.SendMessage(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()
	return msg, nil
}

func messageInput(actor, threadID uint, title, body string) notify.Input {
	return notify.Input{
		Type:        models.NotifMessage,
		Level:       models.LevelActionable,
		Title:       title,
		Body:        textutil.Snippet(body, messageNotifyLen),
		URL:         fmt.Sprintf("/messages/%d", threadID),
		ContextType: models.ContextThread,
		ContextID:   fmt.Sprint(threadID),
		ActorUserID: actor,
	}
}

// sender is the caller's profile for notification titles. Missing is fine.
func (h *DMHandler) sender(ctx context.Context, userID uint) *models.Profile {
	p, err := h.profileRepository.GetByUserID(ctx, userID)
	if err != nil {
		return nil
	}
	return p
}

// SendMessage posts a message and notifies the other participants.
func (h *DMHandler) SendMessage(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	text := strings.TrimSpace(req.Text)
	t, err := h.participantThread(c, userID)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	msg, err := h.send(ctx, t.ID, userID, text)
	if err != nil {
		return storeError(h.log, err, "Message")
	}

	me := h.sender(ctx, userID)
	h.notifier.NotifyMany(ctx, t.Others(userID),
		messageInput(userID, t.ID, "New message from "+me.Name(), text))

	return respond(c, http.StatusCreated, msg)
}

type MessageView struct {
	ID         uint      `json:"id"`
	FromUserID uint      `json:"from_user_id"`
	CreatedAt  time.Time `json:"created_at"`
	Kind       string    `json:"kind"`
	Text       string    `json:"text,omitempty"`
	Post       *PostView `json:"post,omitempty"`
}

// ListMessages lists a thread's messages with shared posts expanded.
func (h *DMHandler) ListMessages(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	t, err := h.participantThread(c, userID)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	messages, err := h.threadRepository.ListMessages(ctx, t.ID)
	if err != nil {
		return storeError(h.log, err, "Message")
	}

	var postIDs []string
	for _, m := range messages {
		if id, ok := sharedPostID(m.Text); ok {
			postIDs = append(postIDs, id)
		}
	}
	views := map[string]PostView{}
	if len(postIDs) > 0 {
		posts, err := h.postRepository.GetPostsByIDs(ctx, postIDs)
		if err != nil {
			return storeError(h.log, err, "Post")
		}
		list := make([]models.Post, 0, len(posts))
		for _, p := range posts {
			list = append(list, p)
		}
		hydrated, err := h.presenter.Views(ctx, list, true)
		if err != nil {
			return storeError(h.log, err, "Post")
		}
		for _, v := range hydrated {
			views[v.ID.Hex()] = v
		}
	}

	out := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		v := MessageView{ID: m.ID, FromUserID: m.FromUserID, CreatedAt: m.CreatedAt, Kind: "text", Text: m.Text}
		if id, ok := sharedPostID(m.Text); ok {
			if pv, found := views[id]; found {
				pv := pv
				v.Kind, v.Text, v.Post = "post", "", &pv
			}
		}
		out = append(out, v)
	}
	return respond(c, http.StatusOK, echo.Map{"items": out})
}

// MarkRead marks a thread and its notifications read for the caller.
func (h *DMHandler) MarkRead(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	t, err := h.participantThread(c, userID)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.threadRepository.MarkRead(ctx, userID, t.ID, time.Now()); err != nil {
		return storeError(h.log, err, "Thread")
	}
	if _, err := h.notificationRepository.MarkContextRead(ctx, userID, models.ContextThread, fmt.Sprint(t.ID)); err != nil {
		h.log.Warn("mark thread notifications read failed", zap.Uint("thread_id", t.ID), zap.Error(err))
	}
	return respond(c, http.StatusOK, echo.Map{"ok": true})
}

// targetProfiles loads the requested profiles, keeping request order.
func (h *DMHandler) targetProfiles(ctx context.Context, ids []uint) ([]models.Profile, error) {
	found, err := h.profileRepository.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Profile, 0, len(found))
	seen := map[uint]bool{}
	for _, id := range ids {
		if p, ok := found[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// SharePost sends a post into a thread with each target profile.
func (h *DMHandler) SharePost(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.SharePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.postRepository.GetPostByID(ctx, req.PostID); err != nil {
		return storeError(h.log, err, "Post")
	}
	targets, err := h.targetProfiles(ctx, req.TargetProfileIDs)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}

	me := h.sender(ctx, userID)
	payload := postPayload(req.PostID)
	threads := []uint{}
	for _, p := range targets {
		if p.UserID == 0 || p.UserID == userID {
			continue
		}
		t, err := h.threadRepository.GetOrCreateThread(ctx, userID, p.UserID)
		if err != nil {
			return storeError(h.log, err, "Thread")
		}
		if _, err := h.send(ctx, t.ID, userID, payload); err != nil {
			return storeError(h.log, err, "Message")
		}
		threads = append(threads, t.ID)
		in := messageInput(userID, t.ID, me.Name()+" shared a post with you", sharedPostLabel)
		in.Data = map[string]interface{}{"postId": req.PostID}
		if _, err := h.notifier.Notify(ctx, p.UserID, in); err != nil {
			h.log.Error("share notification failed", zap.Error(err))
		}
	}
	return respond(c, http.StatusOK, echo.Map{"threads": threads})
}

type BulkResult struct {
	ProfileID uint `json:"profile_id"`
	ThreadID  uint `json:"thread_id"`
	MessageID uint `json:"message_id"`
}

// BulkSend sends a personalized message to each target profile.
func (h *DMHandler) BulkSend(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.BulkSendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	me, err := profileOf(ctx, h.profileRepository, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	if me == nil {
		return errForbidden
	}
	targets, err := h.targetProfiles(ctx, req.ProfileIDs)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}

	results := []BulkResult{}
	for _, p := range targets {
		if p.UserID == 0 || p.UserID == userID {
			continue
		}
		t, err := h.threadRepository.GetOrCreateThread(ctx, userID, p.UserID)
		if err != nil {
			return storeError(h.log, err, "Thread")
		}
		text := textutil.Personalize(strings.TrimSpace(req.Text), p.DisplayName, p.Handle)
		msg, err := h.send(ctx, t.ID, userID, text)
		if err != nil {
			return storeError(h.log, err, "Message")
		}
		results = append(results, BulkResult{ProfileID: p.ID, ThreadID: t.ID, MessageID: msg.ID})
		if _, err := h.notifier.Notify(ctx, p.UserID,
			messageInput(userID, t.ID, "New message from "+me.Name(), text)); err != nil {
			h.log.Error("bulk notification failed", zap.Error(err))
		}
	}
	return respond(c, http.StatusOK, echo.Map{"count": len(results), "results": results})
}
