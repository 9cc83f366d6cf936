package callsheet

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleToDept(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"1st AD":           DeptAD,
		"Key 2nd":          DeptAD,
		"DOP":              DeptCamera,
		"Camera Operator":  DeptCamera,
		"Gaffer":           DeptGripElectric,
		"Location Manager": DeptLocations,
		"Props Master":     DeptArt,
		"Costume Designer": DeptWardrobe,
		"Hair Stylist":     DeptHMU,
		"Boom Op":          DeptSound,
		"Stunt Performer":  DeptStunts,
		"VFX Supervisor":   DeptVFX,
		"Editor":           DeptCamera,
		"Post Coordinator": DeptPost,
		"Driver":           DeptTransport,
		"Craft Service":    DeptCatering,
		"Catering Lead":    DeptCatering,
		"Stand In":         DeptCast,
		"Producer":         DeptMisc,
	}
	for role, want := range cases {
		assert.Equal(t, want, RoleToDept(role), role)
	}
}

func TestParseDetailsLenient(t *testing.T) {
	d, err := ParseDetails([]byte(`{"company":{"name":"Northlight"},"schedule":[{"scene":12,"description":"INT. DINER","dayNight":"N"}],"atmosphere":[{"new":true,"name":"Diner patrons"}]}`))
	require.NoError(t, err)
	assert.Equal(t, Field("Northlight"), d.Company.Name)
	require.Len(t, d.Schedule, 1)
	assert.Equal(t, Field("12"), d.Schedule[0].Scene)
	assert.Equal(t, Field("Y"), d.Atmosphere[0].New)

	empty, err := ParseDetails(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Schedule)
}

func TestMergeCover(t *testing.T) {
	out, err := MergeCover([]byte(`{"notes":"bring layers"}`), "https://cdn.example.com/c.jpg")
	require.NoError(t, err)
	assert.JSONEq(t, `{"notes":"bring layers","coverUrl":"https://cdn.example.com/c.jpg"}`, string(out))
	assert.Equal(t, "https://cdn.example.com/c.jpg", CoverURL(out))

	out, err = MergeCover(nil, "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"coverUrl":"x"}`, string(out))
}

func sampleSheet() Sheet {
	crew := time.Date(2026, 4, 2, 6, 30, 0, 0, time.UTC)
	pid := uint(3)
	p := &models.Project{
		ID:       7,
		Name:     "Night Shift",
		CrewCall: &crew,
		Members: []models.ProjectMember{
			{ExternalName: "Dana Ruiz", Role: "Gaffer", Email: "dana@example.com"},
			{ProfileID: &pid, Department: DeptCamera, Profile: &models.ProfileCompact{Handle: "sam"}},
		},
	}
	d, _ := ParseDetails([]byte(`{"header":{"advisories":["Closed set"]},"cast":[{"no":1,"cast":"Lee","comments":"` +
		strings.Repeat("long remark ", 40) + `"}]}`))
	return Build(p, d, nil)
}

func TestBuild(t *testing.T) {
	s := sampleSheet()
	assert.Equal(t, "COMPANY", s.Company)
	assert.Equal(t, Missing, s.Address)
	assert.Equal(t, "Closed set", s.Advisories[0])
	assert.Equal(t, KV{"CREW CALL:", "Thu Apr 2, 2026 6:30 AM"}, s.Times[0])
	assert.Equal(t, KV{"SHOOT CALL:", Missing}, s.Times[1])
	assert.Len(t, s.Contacts, 8)
	assert.Equal(t, []string{
		"Gaffer  •  Dana Ruiz  •  dana@example.com",
		"CAMERA  •  @sam",
	}, s.Crew)
}

func TestRenderPDF(t *testing.T) {
	out, err := RenderPDF(sampleSheet())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPrintEscapes(t *testing.T) {
	s := sampleSheet()
	s.Title = `<script>alert(1)</script>`
	var buf bytes.Buffer
	require.NoError(t, Print(s).Render(context.Background(), &buf))
	html := buf.String()
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "CREW (summary)")
	assert.Contains(t, html, "Dana Ruiz")
}
