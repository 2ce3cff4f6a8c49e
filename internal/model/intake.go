package model

// Gender is the patient gender as collected on the intake form.
type Gender string

const (
	GenderUnspecified Gender = ""
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
)

// Label returns the display form used in clinical queries.
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Laki-laki"
	case GenderFemale:
		return "Perempuan"
	default:
		return ""
	}
}

// Symptom duration buckets offered by the intake form.
var DurationBuckets = []string{
	"1-3 hari",
	"1 minggu",
	"2-3 minggu",
	"1 bulan",
	"2-3 bulan",
	">3 bulan",
}

// IsValidDuration reports whether d is one of the fixed buckets or empty.
func IsValidDuration(d string) bool {
	if d == "" {
		return true
	}
	for _, b := range DurationBuckets {
		if d == b {
			return true
		}
	}
	return false
}

// ComorbidityTags are the checkbox options on the intake form. Anything
// else arrives through the free-text "other" entry.
var ComorbidityTags = []string{
	"HIV",
	"Diabetes",
	"Hipertensi",
	"Asma",
	"Kanker",
	"Gagal ginjal",
}

// PatientIntake is the transient draft of the patient form. It is mutated
// only during form entry and folded into a PatientRecord on save.
type PatientIntake struct {
	Name           string   `json:"name"`
	Age            int      `json:"age" binding:"omitempty,min=1,max=120"`
	Gender         Gender   `json:"gender"`
	Symptoms       string   `json:"symptoms"`
	Duration       string   `json:"duration"`
	ContactHistory bool     `json:"contact_history"`
	ContactDetail  string   `json:"contact_detail,omitempty"`
	Comorbidities  []string `json:"comorbidities,omitempty"`
	OtherComorbid  string   `json:"other_comorbidities,omitempty"`
	VitalSigns     string   `json:"vital_signs"`
	PhysicalExam   string   `json:"physical_exam"`
}
