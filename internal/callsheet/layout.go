// Package callsheet lays out a project's call sheet and renders it as PDF or
// printable HTML.
package callsheet

import (
	"strings"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
)

// Missing is printed for empty values.
const Missing = "—"

const timeLayout = "Mon Jan 2, 2006 3:04 PM"

type KV struct {
	Label string
	Value string
}

// Table is a grid with one wrapped column.
type Table struct {
	Title   string
	Headers []string
	Widths  []float64 // in points; 0 takes the remaining width
	Wrap    int
	Rows    [][]string
}

// Sheet is everything both renderers print, in section order.
type Sheet struct {
	ProjectID uint

	Company    string
	Address    string
	Office     []KV
	Title      string
	Advisories [3]string
	Times      []KV
	Weather    string
	Meals      []KV

	Schedule   Table
	Locations  []KV
	TotalPages string

	Cast       Table
	Atmosphere Table
	Notes      string
	Paperwork  string
	Advanced   Table

	Contacts []KV
	Safety   []KV
	Hotlines []string

	Crew []string
}

var contactRoles = []string{
	"PM", "1st AD", "2nd AD", "3rd AD",
	"Location Manager", "Asst. Loc. Manager",
	"Transport Coord", "Transport Capt.",
}

var castHeaders = []string{"#", "Cast", "Character", "Status", "PU/LV", "HMU", "REH/BLCK", "SET", "Comments"}
var castWidths = []float64{28, 120, 100, 60, 45, 45, 55, 45, 0}

func or(f Field) string {
	if s := strings.TrimSpace(string(f)); s != "" {
		return s
	}
	return Missing
}

func when(t *time.Time, loc *time.Location) string {
	if t == nil {
		return Missing
	}
	return t.In(loc).Format(timeLayout)
}

// Build assembles the sheet for a project loaded with its members. Times
// print in loc, or UTC when loc is nil.
func Build(p *models.Project, d Details, loc *time.Location) Sheet {
	if loc == nil {
		loc = time.UTC
	}
	s := Sheet{ProjectID: p.ID, Company: string(d.Company.Name), Title: p.Name}
	if s.Company == "" {
		s.Company = "COMPANY"
	}
	if s.Title == "" {
		s.Title = "Title"
	}

	s.Address = or(d.Office.Address)
	s.Office = []KV{
		{"Email:", or(d.Office.Email)},
		{"Payroll:", or(d.Office.PayrollEmail)},
		{"AP:", or(d.Office.APEmail)},
		{"Exec Producers:", or(d.Crew.ExecProducersCSV)},
		{"Producer:", or(d.Crew.Producer)},
		{"Director:", or(d.Crew.Director)},
		{"Writers:", or(d.Crew.WritersCSV)},
	}
	for i := 0; i < len(s.Advisories) && i < len(d.Header.Advisories); i++ {
		s.Advisories[i] = strings.TrimSpace(string(d.Header.Advisories[i]))
	}
	s.Times = []KV{
		{"CREW CALL:", when(p.CrewCall, loc)},
		{"SHOOT CALL:", when(p.ShootCall, loc)},
		{"AM Curfew:", or(d.Times.AMCurfew)},
		{"Tail Lights:", or(d.Times.TailLights)},
	}
	s.Weather = "Sunrise: " + or(d.Weather.Sunrise) + "   Sunset: " + or(d.Weather.Sunset) +
		"   Hi: " + or(d.Weather.Hi) + "   Lo: " + or(d.Weather.Lo)
	s.Meals = []KV{
		{"Circus Hot:", or(d.Meals.CircusHot)},
		{"Breakfast:", or(d.Meals.Breakfast)},
		{"Lunch:", or(d.Meals.Lunch)},
		{"Driver Lunch:", or(d.Meals.DriverLunch)},
	}

	s.Schedule = Table{
		Title:   "SCHEDULE",
		Headers: []string{"Scene", "Set / Description", "Cast", "D/N", "PGS"},
		Widths:  []float64{60, 260, 80, 40, 40},
		Wrap:    1,
	}
	for _, r := range d.Schedule {
		s.Schedule.Rows = append(s.Schedule.Rows, []string{
			string(r.Scene), string(r.Description), string(r.Cast), string(r.DayNight), string(r.PGS),
		})
	}
	s.Locations = []KV{
		{"SET", or(d.Locations.Set)},
		{"TRUCKS", or(d.Locations.Trucks)},
		{"LUNCH", or(d.Locations.Lunch)},
		{"CIRCUS", or(d.Locations.Circus)},
		{"CREW PARK", or(d.Locations.CrewPark)},
		{"BGE", or(d.Locations.BGE)},
		{"NOTES", or(d.Locations.Notes)},
	}
	s.TotalPages = or(d.ScheduleTotalPages)

	s.Cast = castTable("CAST", d.Cast)
	s.Atmosphere = Table{
		Title:   "ATMOSPHERE & STAND-INS",
		Headers: []string{"#New", "Name", "Call", "On Set", "Remarks"},
		Widths:  []float64{36, 210, 70, 70, 0},
		Wrap:    4,
	}
	for _, r := range d.Atmosphere {
		s.Atmosphere.Rows = append(s.Atmosphere.Rows, []string{
			string(r.New), string(r.Name), string(r.Call), string(r.OnSet), string(r.Remarks),
		})
	}
	s.Notes = string(d.Notes)
	s.Paperwork = string(d.Paperwork)
	s.Advanced = castTable("ADVANCED SHOOTING SCHEDULE (NEXT DAY)", d.AdvancedSchedule)

	for _, role := range contactRoles {
		s.Contacts = append(s.Contacts, KV{role + ":", or(d.Contacts[role].Text)})
	}
	s.Safety = []KV{
		{"Nearest Hospital:", or(d.Safety.Hospital)},
		{"Emergency Notes:", or(d.Safety.EmergencyNotes)},
	}
	s.Hotlines = []string{
		"DGC ANONYMOUS HOTLINE: " + or(d.Safety.DGCHotline),
		"WORKSAFE BC HOTLINE: " + or(d.Safety.WorksafeHotline),
		"First Aid: " + or(d.Safety.FirstAid),
	}

	for i := range p.Members {
		s.Crew = append(s.Crew, CrewLine(&p.Members[i]))
	}
	return s
}

func castTable(title string, rows []CastRow) Table {
	t := Table{Title: title, Headers: castHeaders, Widths: castWidths, Wrap: 8}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			string(r.No), string(r.Cast), string(r.Character), string(r.Status), string(r.PuLv),
			string(r.HMU), string(r.RehBlk), string(r.SetTime), string(r.Comments),
		})
	}
	return t
}

// CrewLine is the one-line crew summary of a member.
func CrewLine(m *models.ProjectMember) string {
	who := m.DisplayName()
	if who == "" {
		who = Missing
	}
	role := m.Role
	if role == "" {
		role = m.Department
	}
	parts := make([]string, 0, 4)
	for _, v := range []string{role, who, m.Email, m.Phone} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "  •  ")
}
