package constants

import "strings"

// ComplicationType is one entry in a complication case.
type ComplicationType string

const (
	ComplicationPCR                  ComplicationType = "Posterior capsule rupture"
	ComplicationVitreousLoss         ComplicationType = "Vitreous loss"
	ComplicationZonularDialysis      ComplicationType = "Zonular dialysis"
	ComplicationDroppedNucleus       ComplicationType = "Dropped nucleus"
	ComplicationIrisTrauma           ComplicationType = "Iris trauma"
	ComplicationChoroidalHaemorrhage ComplicationType = "Choroidal haemorrhage"
	ComplicationOther                ComplicationType = "Other"
)

var allComplications = []ComplicationType{
	ComplicationPCR,
	ComplicationVitreousLoss,
	ComplicationZonularDialysis,
	ComplicationDroppedNucleus,
	ComplicationIrisTrauma,
	ComplicationChoroidalHaemorrhage,
	ComplicationOther,
}

// AllComplications returns the selectable complication types in display order.
func AllComplications() []ComplicationType {
	out := make([]ComplicationType, len(allComplications))
	copy(out, allComplications)
	return out
}

// ComplicationFromLabel matches a label against the complication vocabulary,
// ignoring case and surrounding whitespace.
func ComplicationFromLabel(label string) (ComplicationType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	for _, c := range allComplications {
		if normalized == strings.ToLower(string(c)) {
			return c, true
		}
	}
	return "", false
}

// IsPCRLike reports whether free text describes a posterior-capsule-rupture
// type complication. The rate analytics match on substrings because upstream
// complication text is free-form.
func IsPCRLike(text string) bool {
	normalized := strings.ToLower(text)
	return strings.Contains(normalized, "posterior capsule") ||
		strings.Contains(normalized, "pcr")
}
