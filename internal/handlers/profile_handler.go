package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/media"
	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/internal/textutil"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const maxProfileHandleLen = 40

// ProfileHandler handles profile reads, edits, onboarding and avatars
type ProfileHandler struct {
	profileRepository repositories.ProfileRepository
	profiles          *ProfileBootstrapper
	store             ObjectStore
	log               *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(
	profileRepo repositories.ProfileRepository,
	profiles *ProfileBootstrapper,
	store ObjectStore,
	log *zap.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		profileRepository: profileRepo,
		profiles:          profiles,
		store:             store,
		log:               log,
	}
}

// RegisterProfileRoutes registers profile routes
func (h *ProfileHandler) RegisterProfileRoutes(public, private *echo.Group) {
	private.GET("/profiles/me", h.Me)
	private.PUT("/profiles/me", h.Update)
	private.POST("/profiles/me/avatar", h.UploadAvatar)
	public.GET("/profiles/handle/:handle", h.ByHandle)
	public.GET("/handle/check", h.CheckHandle)
	private.POST("/onboarding/complete", h.CompleteOnboarding)
}

func (h *ProfileHandler) Me(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	p, err := h.profiles.EnsureProfile(c.Request().Context(), userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	return respond(c, http.StatusOK, p)
}

func (h *ProfileHandler) ByHandle(c echo.Context) error {
	handle := strings.ToLower(strings.TrimPrefix(c.Param("handle"), "@"))
	p, err := h.profileRepository.GetByHandle(c.Request().Context(), handle)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	return respond(c, http.StatusOK, p)
}

// handleFree reports whether handle is unclaimed or already the caller's.
func (h *ProfileHandler) handleFree(c echo.Context, handle string, userID uint) (bool, error) {
	owner, taken, err := h.profileRepository.HandleOwner(c.Request().Context(), handle)
	if err != nil {
		return false, storeError(h.log, err, "Profile")
	}
	return !taken || (userID != 0 && owner == userID), nil
}

// CheckHandle normalizes a handle and reports whether the caller can take it.
func (h *ProfileHandler) CheckHandle(c echo.Context) error {
	handle := textutil.Handle(c.QueryParam("handle"), maxProfileHandleLen)
	if handle == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Handle is empty")
	}
	free, err := h.handleFree(c, handle, currentUserOrZero(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, echo.Map{"handle": handle, "available": free})
}

// Update replaces the editable profile fields.
func (h *ProfileHandler) Update(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	handle := textutil.Handle(req.Handle, maxProfileHandleLen)
	if len(handle) < 3 {
		return echo.NewHTTPError(http.StatusBadRequest, "Handle must have at least 3 characters")
	}
	free, err := h.handleFree(c, handle, userID)
	if err != nil {
		return err
	}
	if !free {
		return echo.NewHTTPError(http.StatusConflict, "Handle is taken")
	}

	ctx := c.Request().Context()
	p, err := h.profiles.EnsureProfile(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}

	p.DisplayName = strings.TrimSpace(req.DisplayName)
	p.Handle = handle
	professions := pq.StringArray{}
	for _, prof := range req.Professions {
		professions = append(professions, strings.TrimSpace(prof))
	}
	p.Professions = professions
	if len(professions) > 0 {
		p.Profession = professions[0]
	}
	p.Bio = strings.TrimSpace(req.Bio)
	p.City = strings.TrimSpace(req.City)
	p.Region = strings.TrimSpace(req.Region)
	setBool(&p.ServicesEnabled, req.ServicesEnabled)
	setBool(&p.AcceptsBriefs, req.AcceptsBriefs)
	setBool(&p.AcceptsDMs, req.AcceptsDMs)
	setBool(&p.ShowCityPublicly, req.ShowCityPublicly)
	setBool(&p.ShowRatesPublicly, req.ShowRatesPublicly)
	p.CurrentWorkCity = strings.TrimSpace(req.CurrentWorkCity)
	p.CurrentWorkUntil = req.CurrentWorkUntil
	p.AccountType = req.AccountType
	p.PortfolioURL = strings.TrimSpace(req.PortfolioURL)

	if err := h.profileRepository.Update(ctx, p); err != nil {
		if isConflict(err) {
			return echo.NewHTTPError(http.StatusConflict, "Handle is taken")
		}
		return storeError(h.log, err, "Profile")
	}
	return respond(c, http.StatusOK, p)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// CompleteOnboarding sets the display name, handle and account type chosen
// on first sign-in.
func (h *ProfileHandler) CompleteOnboarding(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.OnboardingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	handle := textutil.Handle(req.Handle, maxProfileHandleLen)
	if handle == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Handle is empty")
	}
	free, err := h.handleFree(c, handle, userID)
	if err != nil {
		return err
	}
	if !free {
		return echo.NewHTTPError(http.StatusConflict, "handle-taken")
	}

	ctx := c.Request().Context()
	p, err := h.profiles.EnsureProfile(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	p.DisplayName = strings.TrimSpace(req.DisplayName)
	p.Handle = handle
	if req.AccountType != "" {
		p.AccountType = req.AccountType
	}
	if err := h.profileRepository.Update(ctx, p); err != nil {
		if isConflict(err) {
			return echo.NewHTTPError(http.StatusConflict, "handle-taken")
		}
		return storeError(h.log, err, "Profile")
	}
	return respond(c, http.StatusOK, p)
}

// UploadAvatar resizes the uploaded image and stores it as the avatar.
func (h *ProfileHandler) UploadAvatar(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	if h.store == nil {
		return errStorageDisabled
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > media.MaxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Image is too large")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable upload")
	}
	defer src.Close()

	avatar, err := media.ProcessAvatar(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unsupported image")
	}

	ctx := c.Request().Context()
	p, err := h.profiles.EnsureProfile(ctx, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	url, err := h.store.Put(ctx, media.AvatarObject(userID), "image/jpeg", bytes.NewReader(avatar.Data))
	if err != nil {
		h.log.Error("avatar upload failed", zap.Uint("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Could not store avatar")
	}
	p.AvatarURL = url
	if err := h.profileRepository.Update(ctx, p); err != nil {
		return storeError(h.log, err, "Profile")
	}
	return respond(c, http.StatusOK, echo.Map{"avatar_url": url, "width": avatar.Width, "height": avatar.Height})
}
