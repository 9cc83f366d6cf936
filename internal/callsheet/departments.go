package callsheet

import (
	"regexp"
	"strings"
)

// Department codes used on crew lists.
const (
	DeptAD           = "AD"
	DeptCamera       = "CAMERA"
	DeptGripElectric = "GRIP_ELECTRIC"
	DeptLocations    = "LOCATIONS"
	DeptArt          = "ART"
	DeptWardrobe     = "WARDROBE"
	DeptHMU          = "HMU"
	DeptSound        = "SOUND"
	DeptSPFX         = "SPFX"
	DeptStunts       = "STUNTS"
	DeptVFX          = "VFX"
	DeptPost         = "POST"
	DeptTransport    = "TRANSPORT"
	DeptCatering     = "CATERING"
	DeptMedSafety    = "MED_SAFETY"
	DeptCast         = "CAST"
	DeptMisc         = "MISC"
)

// Checked in order; the first match wins.
var departmentRules = []struct {
	dept string
	re   *regexp.Regexp
}{
	{DeptAD, regexp.MustCompile(`(^|\W)(1st|2nd|3rd|tad|ad)(\W|$)`)},
	{DeptCamera, regexp.MustCompile(`dop|d\.?p|camera|ac|dit|stills`)},
	{DeptGripElectric, regexp.MustCompile(`gaffer|lx|lamp|grip|dolly`)},
	{DeptLocations, regexp.MustCompile(`location|alm`)},
	{DeptArt, regexp.MustCompile(`art|props|set dec|set dresser|prod des`)},
	{DeptWardrobe, regexp.MustCompile(`wardrobe|costume`)},
	{DeptHMU, regexp.MustCompile(`hair|make.?up|hmu`)},
	{DeptSound, regexp.MustCompile(`sound|mixer|boom`)},
	{DeptSPFX, regexp.MustCompile(`spfx|special effects|snow team`)},
	{DeptStunts, regexp.MustCompile(`stunt`)},
	{DeptVFX, regexp.MustCompile(`vfx|compositor|cg`)},
	{DeptPost, regexp.MustCompile(`post|editor|post coord|post sup`)},
	{DeptTransport, regexp.MustCompile(`transport|driver|capt|coord`)},
	{DeptCatering, regexp.MustCompile(`catering|craft`)},
	{DeptMedSafety, regexp.MustCompile(`first aid|facs|safety|med`)},
	{DeptCast, regexp.MustCompile(`actor|cast|stand in|double`)},
}

// RoleToDept maps a free-text crew role to a department code. An empty role
// maps to "".
func RoleToDept(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return ""
	}
	for _, rule := range departmentRules {
		if rule.re.MatchString(r) {
			return rule.dept
		}
	}
	return DeptMisc
}
