package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FollowHandler handles follow-related HTTP requests
type FollowHandler struct {
	followRepository  repositories.FollowRepository
	profileRepository repositories.ProfileRepository
	notifier          *notify.Notifier
	log               *zap.Logger
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(
	followRepo repositories.FollowRepository,
	profileRepo repositories.ProfileRepository,
	notifier *notify.Notifier,
	log *zap.Logger,
) *FollowHandler {
	return &FollowHandler{
		followRepository:  followRepo,
		profileRepository: profileRepo,
		notifier:          notifier,
		log:               log,
	}
}

// RegisterFollowRoutes registers follow routes
func (h *FollowHandler) RegisterFollowRoutes(public, private *echo.Group) {
	private.GET("/follow/following", h.GetFollowing)
	private.POST("/follow/:profileId", h.ToggleFollow)
	private.GET("/follow/:profileId/status", h.Status)
	public.GET("/follow/:profileId/counts", h.Counts)
}

// ToggleFollow follows or unfollows a profile.
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := paramID(c, "profileId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	me, err := h.profileRepository.GetByUserID(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	if me.ID == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}
	target, err := h.profileRepository.GetByID(ctx, targetID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}

	following, err := h.followRepository.ToggleFollow(ctx, me.ID, target.ID)
	if err != nil {
		return storeError(h.log, err, "Follow")
	}

	if following {
		_, err := h.notifier.Notify(ctx, target.UserID, notify.Input{
			Type:        models.NotifFollow,
			Level:       models.LevelActionable,
			Title:       fmt.Sprintf("%s followed you", followerName(me)),
			Body:        "@" + me.Handle,
			URL:         "/@" + me.Handle,
			ContextType: models.ContextProfile,
			ContextID:   fmt.Sprint(me.ID),
			ActorUserID: userID,
		})
		if err != nil {
			h.log.Error("follow notification failed", zap.Error(err))
		}
	}

	return respond(c, http.StatusOK, echo.Map{"following": following})
}

func followerName(p *models.Profile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "Someone"
}

// Status reports whether the caller follows the profile.
func (h *FollowHandler) Status(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := paramID(c, "profileId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	me, err := profileOf(ctx, h.profileRepository, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	if me == nil {
		return respond(c, http.StatusOK, echo.Map{"following": false})
	}
	following, err := h.followRepository.IsFollowing(ctx, me.ID, targetID)
	if err != nil {
		return storeError(h.log, err, "Follow")
	}
	return respond(c, http.StatusOK, echo.Map{"following": following})
}

// Counts returns follower and following totals for a profile.
func (h *FollowHandler) Counts(c echo.Context) error {
	profileID, err := paramID(c, "profileId")
	if err != nil {
		return err
	}
	followers, following, err := h.followRepository.Counts(c.Request().Context(), profileID)
	if err != nil {
		return storeError(h.log, err, "Follow")
	}
	return respond(c, http.StatusOK, echo.Map{"followers": followers, "following": following})
}

// GetFollowing lists the profiles the caller follows, newest follow first.
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	me, err := profileOf(ctx, h.profileRepository, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	profiles := []models.Profile{}
	if me != nil {
		if profiles, err = h.followRepository.GetFollowing(ctx, me.ID); err != nil {
			return storeError(h.log, err, "Follow")
		}
	}
	out := make([]models.ProfileCompact, 0, len(profiles))
	for i := range profiles {
		out = append(out, profiles[i].ToCompact())
	}
	return respond(c, http.StatusOK, echo.Map{"items": out})
}
