// Package intake normalizes free-form patient input into the canonical
// clinical query submitted to the reasoning service. Pure transformation:
// no network, no storage, identical input yields identical output.
package intake

import (
	"fmt"
	"strings"

	"github.com/tbnow/screening-api/internal/model"
	"github.com/tbnow/screening-api/pkg/errors"
)

const (
	// Placeholder for fields the form left empty. The service always
	// receives a fully shaped document, never a missing line.
	placeholderEmpty = "Tidak diisi"
	// The comorbidities line keeps the wording the clinicians expect.
	placeholderNoComorbidities = "Tidak ada"

	queryHeader      = "INFORMASI PASIEN:"
	queryInstruction = "Berikan penilaian risiko TB dan rekomendasi diagnosis."
)

// QuickQuery wraps a raw free-text question. Leading/trailing whitespace
// is trimmed; empty input is rejected before it can reach the network.
func QuickQuery(question string) (model.ClinicalQuery, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return model.ClinicalQuery{}, errors.NewBadRequest("question is required", nil)
	}
	return model.ClinicalQuery{Text: q, Mode: model.QueryModeQuick}, nil
}

// DiagnosisQuery assembles the full patient document in fixed section
// order: identity, symptoms, duration, contact history, comorbidities,
// vitals, physical exam.
func DiagnosisQuery(in model.PatientIntake) model.ClinicalQuery {
	var b strings.Builder
	b.WriteString(queryHeader)
	b.WriteByte('\n')

	writeField(&b, "Nama", in.Name)
	writeField(&b, "Usia", ageText(in.Age))
	writeField(&b, "Jenis Kelamin", in.Gender.Label())
	writeField(&b, "Gejala", in.Symptoms)
	writeField(&b, "Lama gejala", in.Duration)
	writeField(&b, "Riwayat kontak", contactText(in))

	merged := MergeComorbidities(in.Comorbidities, in.OtherComorbid)
	if len(merged) == 0 {
		writeField(&b, "Komorbiditas", placeholderNoComorbidities)
	} else {
		writeField(&b, "Komorbiditas", strings.Join(merged, ", "))
	}

	writeField(&b, "Tanda vital", in.VitalSigns)
	writeField(&b, "Pemeriksaan fisik", in.PhysicalExam)

	b.WriteByte('\n')
	b.WriteString(queryInstruction)

	return model.ClinicalQuery{Text: b.String(), Mode: model.QueryModeDiagnosis}
}

// MergeComorbidities merges checkbox-selected tags with the free-text
// "other" entry into one set. Duplicates collapse, empty entries drop,
// and known tags always come out in their fixed form order so the merge
// is insensitive to toggle order.
func MergeComorbidities(selected []string, other string) []string {
	seen := make(map[string]bool, len(selected)+1)
	trimmed := make([]string, 0, len(selected))
	for _, s := range selected {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		trimmed = append(trimmed, s)
	}

	merged := make([]string, 0, len(trimmed)+1)
	inResult := make(map[string]bool, len(trimmed)+1)
	for _, tag := range model.ComorbidityTags {
		if seen[tag] {
			merged = append(merged, tag)
			inResult[tag] = true
		}
	}
	for _, s := range trimmed {
		if !inResult[s] {
			merged = append(merged, s)
			inResult[s] = true
		}
	}
	if o := strings.TrimSpace(other); o != "" && !inResult[o] {
		merged = append(merged, o)
	}
	return merged
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = placeholderEmpty
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

func ageText(age int) string {
	if age <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", age)
}

func contactText(in model.PatientIntake) string {
	if !in.ContactHistory {
		return "Tidak"
	}
	if detail := strings.TrimSpace(in.ContactDetail); detail != "" {
		return "Ya - " + detail
	}
	return "Ya"
}
