package callsheet

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Field is a string that also accepts JSON numbers and booleans, since the
// document is edited freely by clients.
type Field string

func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Field(s)
	case 't', 'f':
		v, err := strconv.ParseBool(string(b))
		if err != nil {
			return err
		}
		if v {
			*f = "Y"
		} else {
			*f = ""
		}
	default:
		*f = Field(b)
	}
	return nil
}

func (f Field) String() string { return string(f) }

// Details is the call sheet document stored on a project.
type Details struct {
	CoverURL string `json:"coverUrl,omitempty"`

	Company struct {
		Name Field `json:"name"`
	} `json:"company"`
	Office struct {
		Address      Field `json:"address"`
		Email        Field `json:"email"`
		PayrollEmail Field `json:"payrollEmail"`
		APEmail      Field `json:"apEmail"`
	} `json:"office"`
	Crew struct {
		ExecProducersCSV Field `json:"execProducersCsv"`
		Producer         Field `json:"producer"`
		Director         Field `json:"director"`
		WritersCSV       Field `json:"writersCsv"`
	} `json:"crew"`
	Header struct {
		Advisories []Field `json:"advisories"`
	} `json:"header"`
	Times struct {
		AMCurfew   Field `json:"amCurfew"`
		TailLights Field `json:"tailLights"`
	} `json:"times"`
	Weather struct {
		Sunrise Field `json:"sunrise"`
		Sunset  Field `json:"sunset"`
		Hi      Field `json:"hi"`
		Lo      Field `json:"lo"`
	} `json:"weather"`
	Meals struct {
		CircusHot   Field `json:"circusHot"`
		Breakfast   Field `json:"breakfast"`
		Lunch       Field `json:"lunch"`
		DriverLunch Field `json:"driverLunch"`
	} `json:"meals"`

	Schedule           []SceneRow `json:"schedule"`
	ScheduleTotalPages Field      `json:"scheduleTotalPages"`
	Locations          struct {
		Set      Field `json:"set"`
		Trucks   Field `json:"trucks"`
		Lunch    Field `json:"lunch"`
		Circus   Field `json:"circus"`
		CrewPark Field `json:"crewPark"`
		BGE      Field `json:"bge"`
		Notes    Field `json:"notes"`
	} `json:"locations"`

	Cast             []CastRow       `json:"cast"`
	Atmosphere       []AtmosphereRow `json:"atmosphere"`
	Notes            Field           `json:"notes"`
	Paperwork        Field           `json:"paperwork"`
	AdvancedSchedule []CastRow       `json:"advancedSchedule"`

	Contacts map[string]struct {
		Text Field `json:"text"`
	} `json:"contacts"`
	Safety struct {
		Hospital        Field `json:"hospital"`
		EmergencyNotes  Field `json:"emergencyNotes"`
		DGCHotline      Field `json:"dgcHotline"`
		WorksafeHotline Field `json:"worksafeHotline"`
		FirstAid        Field `json:"firstAid"`
	} `json:"safety"`
}

type SceneRow struct {
	Scene       Field `json:"scene"`
	Description Field `json:"description"`
	Cast        Field `json:"cast"`
	DayNight    Field `json:"dayNight"`
	PGS         Field `json:"pgs"`
}

type CastRow struct {
	No        Field `json:"no"`
	Cast      Field `json:"cast"`
	Character Field `json:"character"`
	Status    Field `json:"status"`
	PuLv      Field `json:"pulv"`
	HMU       Field `json:"hmu"`
	RehBlk    Field `json:"rehblk"`
	SetTime   Field `json:"setTime"`
	Comments  Field `json:"comments"`
}

type AtmosphereRow struct {
	New     Field `json:"new"`
	Name    Field `json:"name"`
	Call    Field `json:"call"`
	OnSet   Field `json:"onSet"`
	Remarks Field `json:"remarks"`
}

// ParseDetails decodes a stored document. Empty input yields zero Details.
func ParseDetails(raw []byte) (Details, error) {
	var d Details
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return d, nil
	}
	err := json.Unmarshal(raw, &d)
	return d, err
}

// MergeCover sets coverUrl on a details document and keeps every other key.
func MergeCover(raw []byte, coverURL string) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
	}
	v, err := json.Marshal(coverURL)
	if err != nil {
		return nil, err
	}
	doc["coverUrl"] = v
	return json.Marshal(doc)
}

// CoverURL reads coverUrl from a stored document.
func CoverURL(raw []byte) string {
	var doc struct {
		CoverURL string `json:"coverUrl"`
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	_ = json.Unmarshal(raw, &doc)
	return doc.CoverURL
}
