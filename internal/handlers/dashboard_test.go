package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDashboards struct {
	repositories.DashboardRepository
	rows    map[uint]*models.Dashboard
	members map[[2]uint]bool
	links   map[uint][]uint // newest first
	nextID  uint
}

func newFakeDashboards() *fakeDashboards {
	return &fakeDashboards{rows: map[uint]*models.Dashboard{}, members: map[[2]uint]bool{}, links: map[uint][]uint{}}
}

func (f *fakeDashboards) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, d := range f.rows {
		if d.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDashboards) CreateDashboard(_ context.Context, d *models.Dashboard, owner uint) error {
	f.nextID++
	d.ID = f.nextID
	cp := *d
	f.rows[d.ID] = &cp
	f.members[[2]uint{d.ID, owner}] = true
	return nil
}

func (f *fakeDashboards) GetDashboard(_ context.Context, id uint) (*models.Dashboard, error) {
	if d, ok := f.rows[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeDashboards) IsMember(_ context.Context, dashboardID, userID uint) (bool, error) {
	return f.members[[2]uint{dashboardID, userID}], nil
}

func (f *fakeDashboards) LinkProject(_ context.Context, dashboardID, projectID uint) error {
	if containsUint(f.links[dashboardID], projectID) {
		return nil
	}
	f.links[dashboardID] = append([]uint{projectID}, f.links[dashboardID]...)
	return nil
}

func (f *fakeDashboards) LinkedProjectIDs(_ context.Context, dashboardID uint) ([]uint, error) {
	return f.links[dashboardID], nil
}

func (f *fakeDashboards) UpdateCover(_ context.Context, id uint, url string) error {
	f.rows[id].CoverURL = url
	return nil
}

type fakeProjects struct {
	repositories.ProjectRepository
	rows map[uint]models.Project
}

func (f *fakeProjects) GetProject(_ context.Context, id uint) (*models.Project, error) {
	if p, ok := f.rows[id]; ok {
		return &p, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeProjects) GetProjectsByIDs(_ context.Context, ids []uint) ([]models.Project, error) {
	out := []models.Project{}
	for _, id := range ids {
		if p, ok := f.rows[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestCreateDashboardSlugs(t *testing.T) {
	h := NewDashboardHandler(newFakeDashboards(), &fakeProjects{}, zap.NewNop())

	want := []string{"summer-shoots", "summer-shoots-2", "summer-shoots-3"}
	for _, slug := range want {
		rec, err := call(t, h.Create, http.MethodPost, "/dashboards", `{"name":"Summer  Shoots!"}`, 1)
		require.NoError(t, err)
		var d models.Dashboard
		decode(t, rec, &d)
		assert.Equal(t, slug, d.Slug)
	}

	rec, err := call(t, h.Create, http.MethodPost, "/dashboards", `{"name":"***"}`, 1)
	require.NoError(t, err)
	var d models.Dashboard
	decode(t, rec, &d)
	assert.Equal(t, "dashboard", d.Slug)
}

func TestDashboardMembersOnly(t *testing.T) {
	dashboards := newFakeDashboards()
	projects := &fakeProjects{rows: map[uint]models.Project{
		4: {ID: 4, Name: "Pilot", CreatedAt: time.Now()},
		5: {ID: 5, Name: "Promo", CreatedAt: time.Now()},
	}}
	h := NewDashboardHandler(dashboards, projects, zap.NewNop())
	d := &models.Dashboard{Slug: "team", Name: "Team"}
	require.NoError(t, dashboards.CreateDashboard(context.Background(), d, 1))
	id := fmt.Sprint(d.ID)

	for _, pid := range []string{"4", "5", "4"} {
		_, err := call(t, h.LinkCallsheet, http.MethodPost, "/dashboards/"+id+"/callsheets", `{"project_id":`+pid+`}`, 1, "id", id)
		require.NoError(t, err)
	}
	_, err := call(t, h.LinkCallsheet, http.MethodPost, "/dashboards/"+id+"/callsheets", `{"project_id":99}`, 1, "id", id)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	rec, err := call(t, h.Get, http.MethodGet, "/dashboards/"+id, "", 1, "id", id)
	require.NoError(t, err)
	var detail DashboardDetail
	decode(t, rec, &detail)
	require.Len(t, detail.Projects, 2)
	assert.Equal(t, uint(5), detail.Projects[0].ID, "newest link first")

	_, err = call(t, h.Get, http.MethodGet, "/dashboards/"+id, "", 2, "id", id)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	_, err = call(t, h.UpdateCover, http.MethodPatch, "/dashboards/"+id+"/cover", `{"cover_url":"https://cdn.example.com/c.jpg"}`, 2, "id", id)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}
