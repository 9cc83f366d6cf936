package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/anonto42/bizgram/backend/internal/textutil"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxSlugAttempts = 50

// DashboardHandler handles team dashboards
type DashboardHandler struct {
	dashboardRepository repositories.DashboardRepository
	projectRepository   repositories.ProjectRepository
	log                 *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardRepo repositories.DashboardRepository, projectRepo repositories.ProjectRepository, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardRepository: dashboardRepo,
		projectRepository:   projectRepo,
		log:                 log,
	}
}

// RegisterDashboardRoutes registers dashboard routes
func (h *DashboardHandler) RegisterDashboardRoutes(private *echo.Group) {
	private.POST("/dashboards", h.Create)
	private.GET("/dashboards", h.ListMine)
	private.GET("/dashboards/:id", h.Get)
	private.PATCH("/dashboards/:id/cover", h.UpdateCover)
	private.POST("/dashboards/:id/callsheets", h.LinkCallsheet)
}

type DashboardDetail struct {
	models.Dashboard
	Projects []models.Project `json:"projects"`
}

// uniqueSlug appends -2, -3 and so on to the slug of name until it is free.
func (h *DashboardHandler) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := textutil.Slug(name)
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := h.dashboardRepository.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q: %w", base, repositories.ErrConflict)
}

func (h *DashboardHandler) Create(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateDashboardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	slug, err := h.uniqueSlug(ctx, req.Name)
	if err != nil {
		return storeError(h.log, err, "Dashboard")
	}
	d := &models.Dashboard{
		Slug:            slug,
		Name:            strings.TrimSpace(req.Name),
		CoverURL:        req.CoverURL,
		CreatedByUserID: userID,
	}
	if err := h.dashboardRepository.CreateDashboard(ctx, d, userID); err != nil {
		return storeError(h.log, err, "Dashboard")
	}
	return respond(c, http.StatusCreated, d)
}

func (h *DashboardHandler) ListMine(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	dashboards, err := h.dashboardRepository.ListForMember(c.Request().Context(), userID)
	if err != nil {
		return storeError(h.log, err, "Dashboard")
	}
	return respond(c, http.StatusOK, dashboards)
}

// memberDashboard loads the :id dashboard, 403 unless the caller is a member.
func (h *DashboardHandler) memberDashboard(c echo.Context) (*models.Dashboard, error) {
	userID, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	d, err := h.dashboardRepository.GetDashboard(ctx, id)
	if err != nil {
		return nil, storeError(h.log, err, "Dashboard")
	}
	member, err := h.dashboardRepository.IsMember(ctx, d.ID, userID)
	if err != nil {
		return nil, storeError(h.log, err, "Dashboard")
	}
	if !member {
		return nil, errForbidden
	}
	return d, nil
}

// Get returns the dashboard with its projects, newest link first.
func (h *DashboardHandler) Get(c echo.Context) error {
	d, err := h.memberDashboard(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	ids, err := h.dashboardRepository.LinkedProjectIDs(ctx, d.ID)
	if err != nil {
		return storeError(h.log, err, "Dashboard")
	}
	projects, err := h.projectRepository.GetProjectsByIDs(ctx, ids)
	if err != nil {
		return storeError(h.log, err, "Project")
	}
	byID := make(map[uint]models.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}
	detail := DashboardDetail{Dashboard: *d, Projects: make([]models.Project, 0, len(ids))}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			detail.Projects = append(detail.Projects, p)
		}
	}
	return respond(c, http.StatusOK, detail)
}

func (h *DashboardHandler) UpdateCover(c echo.Context) error {
	d, err := h.memberDashboard(c)
	if err != nil {
		return err
	}
	var req models.UpdateCoverRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.dashboardRepository.UpdateCover(c.Request().Context(), d.ID, req.CoverURL); err != nil {
		return storeError(h.log, err, "Dashboard")
	}
	d.CoverURL = req.CoverURL
	return respond(c, http.StatusOK, d)
}

// LinkCallsheet attaches a project to the dashboard. Linking twice is a no-op.
func (h *DashboardHandler) LinkCallsheet(c echo.Context) error {
	d, err := h.memberDashboard(c)
	if err != nil {
		return err
	}
	var req models.LinkCallsheetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.projectRepository.GetProject(ctx, req.ProjectID); err != nil {
		return storeError(h.log, err, "Project")
	}
	if err := h.dashboardRepository.LinkProject(ctx, d.ID, req.ProjectID); err != nil {
		return storeError(h.log, err, "Dashboard")
	}
	return respond(c, http.StatusOK, echo.Map{"dashboard_id": d.ID, "project_id": req.ProjectID})
}
