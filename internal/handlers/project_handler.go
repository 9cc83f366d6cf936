package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/anonto42/bizgram/backend/internal/callsheet"
	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ProjectHandler handles projects, crew and call sheets
type ProjectHandler struct {
	projectRepository repositories.ProjectRepository
	profileRepository repositories.ProfileRepository
	userRepository    repositories.UserRepository
	notifier          *notify.Notifier
	log               *zap.Logger
	now               func() time.Time
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(
	projectRepo repositories.ProjectRepository,
	profileRepo repositories.ProfileRepository,
	userRepo repositories.UserRepository,
	notifier *notify.Notifier,
	log *zap.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projectRepository: projectRepo,
		profileRepository: profileRepo,
		userRepository:    userRepo,
		notifier:          notifier,
		log:               log,
		now:               time.Now,
	}
}

// RegisterProjectRoutes registers the JSON API on private and the browser
// documents (PDF and print view) on docs.
func (h *ProjectHandler) RegisterProjectRoutes(private, docs *echo.Group) {
	private.GET("/projects", h.ListMine)
	private.POST("/projects", h.Create)
	private.GET("/projects/:id", h.Get)
	private.PUT("/projects/:id", h.UpdateMeta)
	private.DELETE("/projects/:id", h.Delete)
	private.POST("/projects/:id/members", h.AddMembers)
	private.POST("/projects/:id/members/manual", h.AddManualMember)
	private.PATCH("/projects/:id/members", h.UpdateMember)
	private.POST("/projects/:id/cover", h.SetCover)
	private.GET("/projects/:id/callsheets", h.ListCallsheets)
	private.POST("/projects/:id/callsheets", h.CreateCallsheet)
	private.POST("/projects/:id/callsheets/:callsheetId/publish", h.PublishCallsheet)

	docs.GET("/projects/:id/callsheet.pdf", h.CallsheetPDF)
	docs.GET("/projects/:id/callsheet/print", h.CallsheetPrint)
}

// ownProject loads a project the caller owns.
func (h *ProjectHandler) ownProject(c echo.Context) (*models.Project, error) {
	userID, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.projectRepository.GetProject(c.Request().Context(), id)
	if err != nil {
		return nil, storeError(h.log, err, "Project")
	}
	if p.OwnerUserID != userID {
		return nil, errForbidden
	}
	return p, nil
}

// withMembers reloads a project with members hydrated with their profiles.
// Members without an email fall back to their account email.
func (h *ProjectHandler) withMembers(ctx context.Context, id uint) (*models.Project, error) {
	p, err := h.projectRepository.GetProjectWithMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Members == nil {
		p.Members = []models.ProjectMember{}
	}
	var profileIDs []uint
	for _, m := range p.Members {
		if m.ProfileID != nil {
			profileIDs = append(profileIDs, *m.ProfileID)
		}
	}
	if len(profileIDs) == 0 {
		return p, nil
	}
	profiles, err := h.profileRepository.GetByIDs(ctx, profileIDs)
	if err != nil {
		return nil, err
	}
	userIDs := make([]uint, 0, len(profiles))
	for _, pr := range profiles {
		userIDs = append(userIDs, pr.UserID)
	}
	users, err := h.userRepository.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for i := range p.Members {
		m := &p.Members[i]
		if m.ProfileID == nil {
			continue
		}
		pr, ok := profiles[*m.ProfileID]
		if !ok {
			continue
		}
		compact := pr.ToCompact()
		m.Profile = &compact
		if m.Email == "" {
			m.Email = users[pr.UserID].Email
		}
	}
	return p, nil
}

func (h *ProjectHandler) respondProject(c echo.Context, id uint) error {
	p, err := h.withMembers(c.Request().Context(), id)
	if err != nil {
		return storeError(h.log, err, "Project")
	}
	return respond(c, http.StatusOK, p)
}

type ProjectSummary struct {
	ID        uint           `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	Details   datatypes.JSON `json:"details"`
}

// ListMine lists the caller's projects, newest first.
func (h *ProjectHandler) ListMine(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	projects, err := h.projectRepository.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return storeError(h.log, err, "Project")
	}
	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectSummary{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, Details: p.Details})
	}
	return respond(c, http.StatusOK, echo.Map{"items": out})
}

func (h *ProjectHandler) Create(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p := &models.Project{OwnerUserID: userID, Name: strings.TrimSpace(req.Name), Details: datatypes.JSON("{}")}
	if err := h.projectRepository.CreateProject(c.Request().Context(), p); err != nil {
		return storeError(h.log, err, "Project")
	}
	return respond(c, http.StatusCreated, echo.Map{"id": p.ID})
}

func (h *ProjectHandler) Get(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	return h.respondProject(c, p.ID)
}

// Delete removes the project with its members and call sheets.
func (h *ProjectHandler) Delete(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	if err := h.projectRepository.DeleteProject(c.Request().Context(), p.ID); err != nil {
		return storeError(h.log, err, "Project")
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}

// UpdateMeta replaces the name and call times. Absent times clear; details
// are replaced only when sent.
func (h *ProjectHandler) UpdateMeta(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	var req models.UpdateProjectMetaRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p.Name = strings.TrimSpace(req.Name)
	p.ShootDate, p.CrewCall, p.ShootCall = req.ShootDate, req.CrewCall, req.ShootCall
	if len(req.Details) > 0 && string(req.Details) != "null" {
		if !json.Valid(req.Details) {
			return echo.NewHTTPError(http.StatusBadRequest, "details must be JSON")
		}
		p.Details = datatypes.JSON(req.Details)
	}
	if err := h.projectRepository.UpdateProject(c.Request().Context(), p); err != nil {
		return storeError(h.log, err, "Project")
	}
	return h.respondProject(c, p.ID)
}

// AddMembers adds app profiles as crew, prefilled from their profile.
func (h *ProjectHandler) AddMembers(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	var req models.AddMembersRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	existing, err := h.projectRepository.MemberProfileIDs(ctx, p.ID)
	if err != nil {
		return storeError(h.log, err, "Member")
	}
	skip := make(map[uint]bool, len(existing))
	for _, id := range existing {
		skip[id] = true
	}
	var wanted []uint
	for _, id := range uniqueUints(req.ProfileIDs) {
		if !skip[id] {
			wanted = append(wanted, id)
		}
	}
	if len(wanted) == 0 {
		return h.respondProject(c, p.ID)
	}

	profiles, err := h.profileRepository.GetByIDs(ctx, wanted)
	if err != nil {
		return storeError(h.log, err, "Profile")
	}
	userIDs := make([]uint, 0, len(profiles))
	for _, pr := range profiles {
		userIDs = append(userIDs, pr.UserID)
	}
	users, err := h.userRepository.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return storeError(h.log, err, "User")
	}

	members := make([]models.ProjectMember, 0, len(wanted))
	for _, id := range wanted {
		pr, ok := profiles[id]
		if !ok {
			continue
		}
		profileID := pr.ID
		members = append(members, models.ProjectMember{
			ProjectID:    p.ID,
			ProfileID:    &profileID,
			ExternalName: pr.DisplayName,
			Role:         pr.Profession,
			Department:   callsheet.RoleToDept(pr.Profession),
			Email:        users[pr.UserID].Email,
		})
	}
	if err := h.projectRepository.AddMembers(ctx, members); err != nil {
		return storeError(h.log, err, "Member")
	}
	return h.respondProject(c, p.ID)
}

// AddManualMember adds crew who are not on the app.
func (h *ProjectHandler) AddManualMember(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	var req models.AddManualMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role := strings.TrimSpace(req.Role)
	dept := strings.TrimSpace(req.Department)
	if dept == "" {
		dept = callsheet.RoleToDept(role)
	}
	m := models.ProjectMember{
		ProjectID:    p.ID,
		ExternalName: strings.TrimSpace(req.Name),
		Role:         role,
		Department:   dept,
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
	}
	if err := h.projectRepository.AddMembers(c.Request().Context(), []models.ProjectMember{m}); err != nil {
		return storeError(h.log, err, "Member")
	}
	return h.respondProject(c, p.ID)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// UpdateMember patches one crew entry. A changed call time notifies the
// member when they are on the app.
func (h *ProjectHandler) UpdateMember(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	var req models.UpdateMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.projectRepository.GetMember(ctx, p.ID, req.MemberID)
	if err != nil {
		return storeError(h.log, err, "Member")
	}

	patch := req.Patch
	if patch.Role != nil {
		role := strings.TrimSpace(*patch.Role)
		if role != m.Role && patch.Department == nil {
			m.Department = callsheet.RoleToDept(role)
		}
		m.Role = role
	}
	if patch.Department != nil {
		m.Department = strings.TrimSpace(*patch.Department)
	}
	if patch.Email != nil {
		m.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Phone != nil {
		m.Phone = strings.TrimSpace(*patch.Phone)
	}
	callChanged := patch.CallTime != nil && !sameTime(m.CallTime, patch.CallTime)
	if patch.CallTime != nil {
		m.CallTime = patch.CallTime
	}
	if err := h.projectRepository.UpdateMember(ctx, m); err != nil {
		return storeError(h.log, err, "Member")
	}

	if callChanged && m.ProfileID != nil {
		h.notifyCallTime(ctx, p, m)
	}
	return h.respondProject(c, p.ID)
}

func (h *ProjectHandler) notifyCallTime(ctx context.Context, p *models.Project, m *models.ProjectMember) {
	pr, err := h.profileRepository.GetByID(ctx, *m.ProfileID)
	if err != nil {
		h.log.Warn("call time member lookup failed", zap.Uint("member_id", m.ID), zap.Error(err))
		return
	}
	_, err = h.notifier.Notify(ctx, pr.UserID, notify.Input{
		Type:        models.NotifCalltimeChanged,
		Level:       models.LevelActionable,
		Title:       "Call time changed — " + p.Name,
		Body:        "Your call time is now " + m.CallTime.UTC().Format(time.RFC3339) + ".",
		URL:         fmt.Sprintf("/projects/%d/callsheet/print", p.ID),
		ContextType: models.ContextProject,
		ContextID:   fmt.Sprint(p.ID),
		ActorUserID: p.OwnerUserID,
		Data:        map[string]interface{}{"memberId": m.ID, "callTime": m.CallTime},
	})
	if err != nil {
		h.log.Error("call time notification failed", zap.Error(err))
	}
}

// SetCover stores the cover image url inside details.
func (h *ProjectHandler) SetCover(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	var req models.SetCoverRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	merged, err := callsheet.MergeCover(p.Details, req.CoverURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Stored details are not an object")
	}
	p.Details = datatypes.JSON(merged)
	if err := h.projectRepository.UpdateProject(c.Request().Context(), p); err != nil {
		return storeError(h.log, err, "Project")
	}
	return respond(c, http.StatusOK, echo.Map{"id": p.ID, "cover_url": req.CoverURL})
}

func (h *ProjectHandler) ListCallsheets(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	sheets, err := h.projectRepository.ListCallsheets(c.Request().Context(), p.ID)
	if err != nil {
		return storeError(h.log, err, "Callsheet")
	}
	return respond(c, http.StatusOK, echo.Map{"items": sheets})
}

// parseSheetDate accepts YYYY-MM-DD or RFC 3339.
func parseSheetDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD or RFC 3339")
}

func (h *ProjectHandler) CreateCallsheet(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	var req models.CreateCallsheetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	date, err := parseSheetDate(req.Date)
	if err != nil {
		return err
	}
	cs := &models.Callsheet{ProjectID: p.ID, Day: req.Day, Date: date}
	if title := strings.TrimSpace(req.Title); title != "" {
		cs.Title = &title
	}
	if err := h.projectRepository.CreateCallsheet(c.Request().Context(), cs); err != nil {
		return storeError(h.log, err, "Callsheet")
	}
	return respond(c, http.StatusCreated, echo.Map{"id": cs.ID})
}

// PublishCallsheet stamps the sheet and notifies every app member.
func (h *ProjectHandler) PublishCallsheet(c echo.Context) error {
	p, err := h.ownProject(c)
	if err != nil {
		return err
	}
	sheetID, err := paramID(c, "callsheetId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	cs, err := h.projectRepository.GetCallsheet(ctx, sheetID)
	if err != nil {
		return storeError(h.log, err, "Callsheet")
	}
	if cs.ProjectID != p.ID {
		return echo.NewHTTPError(http.StatusNotFound, "Callsheet not found")
	}
	at := h.now().UTC()
	if err := h.projectRepository.PublishCallsheet(ctx, cs.ID, at); err != nil {
		return storeError(h.log, err, "Callsheet")
	}
	cs.PublishedAt = &at

	notified := h.NotifyCallsheetPublished(ctx, p)
	return respond(c, http.StatusOK, echo.Map{"callsheet": cs, "notified": notified})
}

// NotifyCallsheetPublished tells every member on the app about a new call
// sheet, skipping those who muted the project. It returns the number notified.
func (h *ProjectHandler) NotifyCallsheetPublished(ctx context.Context, p *models.Project) int {
	contextID := fmt.Sprint(p.ID)
	profileIDs, err := h.projectRepository.MemberProfileIDs(ctx, p.ID)
	if err != nil || len(profileIDs) == 0 {
		if err != nil {
			h.log.Error("member lookup failed", zap.Uint("project_id", p.ID), zap.Error(err))
		}
		return 0
	}
	profiles, err := h.profileRepository.GetByIDs(ctx, profileIDs)
	if err != nil {
		h.log.Error("member profile lookup failed", zap.Uint("project_id", p.ID), zap.Error(err))
		return 0
	}
	userIDs := make([]uint, 0, len(profiles))
	for _, id := range profileIDs {
		if pr, ok := profiles[id]; ok {
			userIDs = append(userIDs, pr.UserID)
		}
	}
	recipients, err := h.notifier.AllowedRecipients(ctx, userIDs, models.ContextProject, contextID)
	if err != nil {
		h.log.Error("mute lookup failed", zap.Uint("project_id", p.ID), zap.Error(err))
		return 0
	}
	return h.notifier.NotifyMany(ctx, recipients, notify.Input{
		Type:        models.NotifCallsheetPublished,
		Level:       models.LevelActionable,
		Title:       "Call sheet published — " + p.Name,
		Body:        "Tap to review the latest call sheet.",
		URL:         fmt.Sprintf("/projects/%d/callsheet/print", p.ID),
		ContextType: models.ContextProject,
		ContextID:   contextID,
		ActorUserID: p.OwnerUserID,
	})
}

// viewableSheet builds the call sheet for the owner or a member.
func (h *ProjectHandler) viewableSheet(c echo.Context) (*callsheet.Sheet, error) {
	userID, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	p, err := h.withMembers(ctx, id)
	if err != nil {
		return nil, storeError(h.log, err, "Project")
	}
	if p.OwnerUserID != userID {
		me, err := profileOf(ctx, h.profileRepository, userID)
		if err != nil {
			return nil, storeError(h.log, err, "Profile")
		}
		if me == nil {
			return nil, errForbidden
		}
		member, err := h.projectRepository.IsMemberProfile(ctx, p.ID, me.ID)
		if err != nil {
			return nil, storeError(h.log, err, "Member")
		}
		if !member {
			return nil, errForbidden
		}
	}

	details, err := callsheet.ParseDetails(p.Details)
	if err != nil {
		h.log.Warn("unreadable call sheet details", zap.Uint("project_id", p.ID), zap.Error(err))
	}
	loc := time.UTC
	if tz := c.QueryParam("tz"); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	sheet := callsheet.Build(p, details, loc)
	return &sheet, nil
}

// CallsheetPDF streams the call sheet as a PDF.
func (h *ProjectHandler) CallsheetPDF(c echo.Context) error {
	sheet, err := h.viewableSheet(c)
	if err != nil {
		return err
	}
	pdf, err := callsheet.RenderPDF(*sheet)
	if err != nil {
		return storeError(h.log, err, "Callsheet")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="callsheet-%d.pdf"`, sheet.ProjectID))
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// CallsheetPrint renders the printable HTML call sheet.
func (h *ProjectHandler) CallsheetPrint(c echo.Context) error {
	sheet, err := h.viewableSheet(c)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return render(c, callsheet.Print(*sheet))
}

// render writes a templ component as an HTML 200.
func render(c echo.Context, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}
