package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/entity"
)

// stepInterval controls how often the stepped series snapshots the cumulative
// rate. Between snapshots the stepped value holds, which gives charts a trend
// line that is not dominated by small-denominator noise early on.
const stepInterval = 3

// RatePoint is one case on the cumulative complication-rate series.
type RatePoint struct {
	CaseNumber     int       `json:"case_number"`
	RecordID       uuid.UUID `json:"record_id"`
	Date           string    `json:"date"`
	IsPCR          bool      `json:"is_pcr"`
	CumulativeRate float64   `json:"cumulative_rate"`
	SteppedRate    float64   `json:"stepped_rate"`
}

// isCataractCase reports whether a record belongs to the cataract subset the
// rate series is computed over.
func isCataractCase(rec *entity.ProcedureRecord) bool {
	p := strings.ToLower(rec.Procedure)
	return strings.Contains(p, "phaco") || strings.Contains(p, "cataract")
}

// isPCRCase reports whether a record carries a posterior-capsule-rupture type
// complication, matching on the complication type and cause text.
func isPCRCase(rec *entity.ProcedureRecord) bool {
	for _, c := range rec.Complications {
		if constants.IsPCRLike(string(c)) {
			return true
		}
	}
	return rec.ComplicationCause != nil && constants.IsPCRLike(*rec.ComplicationCause)
}

// round1 rounds to one decimal place, the precision the charts plot.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// PCRRateSeries computes the running cumulative PCR rate over the cataract
// subset of records, sorted ascending by date with ties broken by the input
// order. The stepped series snapshots the cumulative rate every third case
// and at the final case, holding its last snapshot in between (0 before the
// first snapshot).
//
// Both series are strictly determined by the input: recomputing from scratch
// always reproduces the same values.
func PCRRateSeries(records []*entity.ProcedureRecord) []RatePoint {
	cases := make([]*entity.ProcedureRecord, 0, len(records))
	for _, rec := range records {
		if isCataractCase(rec) {
			cases = append(cases, rec)
		}
	}
	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].Date.Before(cases[j].Date)
	})

	points := make([]RatePoint, 0, len(cases))
	pcrCount := 0
	lastStep := 0.0
	for i, rec := range cases {
		n := i + 1
		if isPCRCase(rec) {
			pcrCount++
		}
		cumulative := round1(float64(pcrCount) / float64(n) * 100)
		if n%stepInterval == 0 || n == len(cases) {
			lastStep = cumulative
		}
		points = append(points, RatePoint{
			CaseNumber:     n,
			RecordID:       rec.ID,
			Date:           rec.Date.Format("2006-01-02"),
			IsPCR:          isPCRCase(rec),
			CumulativeRate: cumulative,
			SteppedRate:    lastStep,
		})
	}
	return points
}
