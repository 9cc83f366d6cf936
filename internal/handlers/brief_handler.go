package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/internal/textutil"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const defaultBriefCurrency = "CAD"

// BriefHandler handles client briefs, invitations and proposals
type BriefHandler struct {
	briefRepository   repositories.BriefRepository
	profileRepository repositories.ProfileRepository
	notifier          *notify.Notifier
	log               *zap.Logger
}

// NewBriefHandler creates a new BriefHandler
func NewBriefHandler(
	briefRepo repositories.BriefRepository,
	profileRepo repositories.ProfileRepository,
	notifier *notify.Notifier,
	log *zap.Logger,
) *BriefHandler {
	return &BriefHandler{
		briefRepository:   briefRepo,
		profileRepository: profileRepo,
		notifier:          notifier,
		log:               log,
	}
}

// RegisterBriefRoutes registers brief routes
func (h *BriefHandler) RegisterBriefRoutes(private *echo.Group) {
	private.POST("/briefs", h.Create)
	private.GET("/briefs/mine", h.Mine)
	private.GET("/briefs/:id", h.Get)
	private.POST("/briefs/:id/invite", h.InviteByHandle)
	private.POST("/briefs/:id/proposals", h.SubmitProposal)
	private.PATCH("/proposals/:id/status", h.SetProposalStatus)
}

// BriefDetail is a brief as its owner sees it.
type BriefDetail struct {
	models.Brief
	Targets   []models.ProfileCompact `json:"targets,omitempty"`
	Proposals []models.Proposal       `json:"proposals,omitempty"`
}

func (h *BriefHandler) Create(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateBriefRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.BudgetMin != nil && req.BudgetMax != nil && *req.BudgetMin > *req.BudgetMax {
		return echo.NewHTTPError(http.StatusBadRequest, "budget_min exceeds budget_max")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultBriefCurrency
	}
	b := &models.Brief{
		OwnerUserID: userID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
		Currency:    currency,
		City:        strings.TrimSpace(req.City),
		Region:      strings.TrimSpace(req.Region),
	}
	if err := h.briefRepository.CreateBrief(c.Request().Context(), b); err != nil {
		return storeError(h.log, err, "Brief")
	}
	return respond(c, http.StatusCreated, b)
}

// Mine lists the caller's briefs with proposal counts.
func (h *BriefHandler) Mine(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	briefs, err := h.briefRepository.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return storeError(h.log, err, "Brief")
	}
	return respond(c, http.StatusOK, briefs)
}

// Get returns a brief to its owner or an invited profile.
func (h *BriefHandler) Get(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	b, err := h.briefRepository.GetBrief(ctx, id)
	if err != nil {
		return storeError(h.log, err, "Brief")
	}
	if b.OwnerUserID != userID {
		if err := h.requireInvited(ctx, b.ID, userID, "Forbidden"); err != nil {
			return err
		}
		return respond(c, http.StatusOK, BriefDetail{Brief: *b})
	}

	detail := BriefDetail{Brief: *b}
	targets, err := h.briefRepository.Targets(ctx, b.ID)
	if err != nil {
		return storeError(h.log, err, "Brief")
	}
	ids := make([]uint, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.ProfileID)
	}
	profiles, err := h.profileRepository.GetByIDs(ctx, ids)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	detail.Targets = make([]models.ProfileCompact, 0, len(ids))
	for _, id := range ids {
		if p, ok := profiles[id]; ok {
			detail.Targets = append(detail.Targets, p.ToCompact())
		}
	}
	if detail.Proposals, err = h.briefRepository.ListProposals(ctx, b.ID); err != nil {
		return storeError(h.log, err, "Proposal")
	}
	return respond(c, http.StatusOK, detail)
}

// requireInvited returns 403 with msg unless the caller's profile is invited.
func (h *BriefHandler) requireInvited(ctx context.Context, briefID, userID uint, msg string) error {
	me, err := profileOf(ctx, h.profileRepository, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	if me == nil {
		return echo.NewHTTPError(http.StatusForbidden, msg)
	}
	invited, err := h.briefRepository.IsInvited(ctx, briefID, me.ID)
	if err != nil {
		return storeError(h.log, err, "Brief")
	}
	if !invited {
		return echo.NewHTTPError(http.StatusForbidden, msg)
	}
	return nil
}

func (h *BriefHandler) ownBrief(c echo.Context) (*models.Brief, uint, error) {
	userID, err := currentUser(c)
	if err != nil {
		return nil, 0, err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return nil, 0, err
	}
	b, err := h.briefRepository.GetBrief(c.Request().Context(), id)
	if err != nil {
		return nil, 0, storeError(h.log, err, "Brief")
	}
	if b.OwnerUserID != userID {
		return nil, 0, errForbidden
	}
	return b, userID, nil
}

// InviteByHandle invites the profile owning a handle and notifies it.
func (h *BriefHandler) InviteByHandle(c echo.Context) error {
	b, userID, err := h.ownBrief(c)
	if err != nil {
		return err
	}
	var req models.InviteByHandleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	handle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(req.Handle), "@"))
	target, err := h.profileRepository.GetByHandle(ctx, handle)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	if err := h.briefRepository.Invite(ctx, b.ID, target.ID); err != nil {
		return storeError(h.log, err, "Brief")
	}

	_, err = h.notifier.Notify(ctx, target.UserID, notify.Input{
		Type:        models.NotifProject,
		Level:       models.LevelActionable,
		Title:       "You were invited to a brief",
		Body:        textutil.Truncate(b.Title, notificationBodyLen),
		URL:         fmt.Sprintf("/briefs/%d", b.ID),
		ContextType: models.ContextBrief,
		ContextID:   fmt.Sprint(b.ID),
		ActorUserID: userID,
	})
	if err != nil {
		h.log.Error("brief invite notification failed", zap.Uint("brief_id", b.ID), zap.Error(err))
	}
	return respond(c, http.StatusOK, echo.Map{"invited": target.ToCompact()})
}

// SubmitProposal answers a brief the caller was invited to.
func (h *BriefHandler) SubmitProposal(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.SubmitProposalRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	b, err := h.briefRepository.GetBrief(ctx, id)
	if err != nil {
		return storeError(h.log, err, "Brief")
	}
	if b.Status != models.BriefOpen {
		return echo.NewHTTPError(http.StatusBadRequest, "Brief is closed")
	}
	if err := h.requireInvited(ctx, b.ID, userID, "Not invited"); err != nil {
		return err
	}
	me, err := profileOf(ctx, h.profileRepository, userID)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}

	p := &models.Proposal{
		BriefID:   b.ID,
		ProfileID: me.ID,
		Message:   strings.TrimSpace(req.Message),
		Price:     req.Price,
	}
	if err := h.briefRepository.CreateProposal(ctx, p); err != nil {
		return storeError(h.log, err, "Proposal")
	}

	_, err = h.notifier.Notify(ctx, b.OwnerUserID, notify.Input{
		Type:        models.NotifProject,
		Level:       models.LevelActionable,
		Title:       fmt.Sprintf("%s sent a proposal", me.Name()),
		Body:        textutil.Truncate(p.Message, notificationBodyLen),
		URL:         fmt.Sprintf("/briefs/%d", b.ID),
		ContextType: models.ContextBrief,
		ContextID:   fmt.Sprint(b.ID),
		ActorUserID: userID,
		Data:        map[string]interface{}{"proposalId": p.ID},
	})
	if err != nil {
		h.log.Error("proposal notification failed", zap.Uint("brief_id", b.ID), zap.Error(err))
	}
	return respond(c, http.StatusCreated, p)
}

// SetProposalStatus lets the brief owner accept or decline a proposal.
func (h *BriefHandler) SetProposalStatus(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateProposalStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.briefRepository.GetProposal(ctx, id)
	if err != nil {
		return storeError(h.log, err, "Proposal")
	}
	b, err := h.briefRepository.GetBrief(ctx, p.BriefID)
	if err != nil {
		return storeError(h.log, err, "Brief")
	}
	if b.OwnerUserID != userID {
		return errForbidden
	}
	if err := h.briefRepository.SetProposalStatus(ctx, p, req.Status); err != nil {
		return storeError(h.log, err, "Proposal")
	}
	p.Status = req.Status
	return respond(c, http.StatusOK, p)
}
