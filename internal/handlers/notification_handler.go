package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	bell                   *notify.Bell
	bus                    notify.Bus
	log                    *zap.Logger
	stream                 streamConfig
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(
	notifRepo repositories.NotificationRepository,
	bell *notify.Bell,
	bus notify.Bus,
	log *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		bell:                   bell,
		bus:                    bus,
		log:                    log,
		stream:                 defaultStreamConfig,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(private *echo.Group) {
	private.GET("/notifications", h.Bell)
	private.GET("/notifications/unseen-count", h.UnseenCount)
	private.POST("/notifications/read-all", h.MarkAllAsRead)
	private.POST("/notifications/context-read", h.MarkContextRead)
	private.POST("/notifications/:id/read", h.MarkAsRead)
	private.GET("/notifications/prefs", h.GetPrefs)
	private.PUT("/notifications/prefs", h.SetPrefs)
	private.PUT("/notifications/mutes", h.Mute)
	private.DELETE("/notifications/mutes", h.Unmute)
	private.GET("/notifications/stream", h.Stream)
	private.GET("/notifications/ws", h.WebSocket)
}

func boolParam(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(c.QueryParam(name)))
	return v
}

// Bell lists notifications merged with unread direct messages.
func (h *NotificationHandler) Bell(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	cursor, limit, err := pageParams(c, 20, 100)
	if err != nil {
		return err
	}
	metrics.BellRequests.Inc()
	items, next, err := h.bell.List(c.Request().Context(), userID, boolParam(c, "unreadOnly"), cursor, limit)
	if err != nil {
		return storeError(h.log, err, "Notification")
	}
	return respondPage(c, echo.Map{"items": items}, next)
}

func (h *NotificationHandler) UnseenCount(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	unseen, err := h.bell.Unseen(c.Request().Context(), userID)
	if err != nil {
		return storeError(h.log, err, "Notification")
	}
	return respond(c, http.StatusOK, unseen)
}

// MarkAsRead marks one of the caller's notifications read.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	n, err := h.notificationRepository.GetByID(ctx, id)
	if err != nil {
		return storeError(h.log, err, "Notification")
	}
	if n.UserID != userID {
		return errForbidden
	}
	if err := h.notificationRepository.MarkAsRead(ctx, n.ID); err != nil {
		return storeError(h.log, err, "Notification")
	}
	return respond(c, http.StatusOK, echo.Map{"ok": true})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	updated, err := h.notificationRepository.MarkAllAsRead(c.Request().Context(), userID)
	if err != nil {
		return storeError(h.log, err, "Notification")
	}
	return respond(c, http.StatusOK, echo.Map{"updated": updated})
}

func (h *NotificationHandler) MarkContextRead(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.ContextReadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	updated, err := h.notificationRepository.MarkContextRead(c.Request().Context(), userID, req.ContextType, req.ContextID)
	if err != nil {
		return storeError(h.log, err, "Notification")
	}
	return respond(c, http.StatusOK, echo.Map{"updated": updated})
}

// GetPrefs returns saved preferences, or the defaults.
func (h *NotificationHandler) GetPrefs(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	p, err := h.notificationRepository.GetPrefs(c.Request().Context(), userID)
	if err != nil {
		return storeError(h.log, err, "Preferences")
	}
	if p == nil {
		def := models.DefaultNotificationPref(userID)
		p = &def
	}
	return respond(c, http.StatusOK, p)
}

// SetPrefs applies the sent fields over the current preferences.
func (h *NotificationHandler) SetPrefs(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.SetPrefsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.notificationRepository.GetPrefs(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "Preferences")
	}
	if p == nil {
		def := models.DefaultNotificationPref(userID)
		p = &def
	}
	if req.EmailEnabled != nil {
		p.EmailEnabled = *req.EmailEnabled
	}
	if req.Digest != nil {
		p.Digest = *req.Digest
	}
	if req.QuietStart != nil {
		p.QuietStart = *req.QuietStart
	}
	if req.QuietEnd != nil {
		p.QuietEnd = *req.QuietEnd
	}
	if len(req.Categories) > 0 && string(req.Categories) != "null" {
		if !strings.HasPrefix(strings.TrimSpace(string(req.Categories)), "{") {
			return echo.NewHTTPError(http.StatusBadRequest, "categories must be an object")
		}
		p.Categories = datatypes.JSON(req.Categories)
	}
	if err := h.notificationRepository.SavePrefs(ctx, p); err != nil {
		return storeError(h.log, err, "Preferences")
	}
	return respond(c, http.StatusOK, p)
}

// Mute silences a context for the caller until an optional time.
func (h *NotificationHandler) Mute(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.MuteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	m := &models.NotificationMute{UserID: userID, ContextType: req.ContextType, ContextID: req.ContextID, Until: req.Until}
	if err := h.notificationRepository.UpsertMute(c.Request().Context(), m); err != nil {
		return storeError(h.log, err, "Mute")
	}
	return respond(c, http.StatusOK, m)
}

func (h *NotificationHandler) Unmute(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.ContextReadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.notificationRepository.DeleteMute(c.Request().Context(), userID, req.ContextType, req.ContextID); err != nil {
		return storeError(h.log, err, "Mute")
	}
	return respond(c, http.StatusOK, echo.Map{"ok": true})
}
