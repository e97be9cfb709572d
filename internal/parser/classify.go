// Package parser reconstructs structured procedure records from ordered
// token rows. The upstream export has no delimiters and a variable number of
// optional fields, so classification anchors on the few fields with a closed
// token vocabulary (date, role code, grade code) and assigns everything else
// by position.
package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/entity"
	"github.com/tbuckley92/eyelog/internal/extract"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// numericPattern matches patient-identifier fragments: digits possibly broken
// up by commas or spaces.
var numericPattern = regexp.MustCompile(`^[0-9][0-9, ]*$`)

// headerLabels are column headings that leak into data rows when a repeated
// table header clusters onto an adjacent row.
var headerLabels = map[string]struct{}{
	"Procedure": {},
	"Side":      {},
	"Date":      {},
	"Pt ID":     {},
	"Pt":        {},
	"ID":        {},
	"Role":      {},
	"Hospital":  {},
	"Grade":     {},
}

const minProcedureLen = 3

// ClassifyRow extracts a procedure record from one ordered token row.
// The second return is false when the row is not a data row; header and
// structural rows are interspersed with data in the source table, so
// unparseable rows are skipped silently rather than reported.
func ClassifyRow(tokens extract.Row) (*entity.ProcedureRecord, bool) {
	// The date is the primary anchor: a row without a YYYY-MM-DD token is
	// never a data row.
	dateIdx := -1
	for i, tok := range tokens {
		if datePattern.MatchString(tok) {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, false
	}

	date, err := time.ParseInLocation("2006-01-02", tokens[dateIdx], time.UTC)
	if err != nil {
		// Matches the shape but not the calendar (e.g. 2021-02-30).
		return nil, false
	}

	// Before the anchor: laterality token or procedure name.
	laterality := constants.LateralityUnknown
	var nameParts []string
	for _, tok := range tokens[:dateIdx] {
		if lat, ok := constants.LateralityFromToken(tok); ok {
			if laterality == constants.LateralityUnknown {
				laterality = lat
			}
			continue
		}
		if _, ok := headerLabels[tok]; ok {
			continue
		}
		nameParts = append(nameParts, tok)
	}
	procedure := strings.Join(nameParts, " ")
	if len(procedure) < minProcedureLen {
		return nil, false
	}

	// After the anchor: the role code is the second anchor. Two-character
	// codes are tried before one-character ones so that PS is never read as
	// P followed by a stray S.
	roleIdx := -1
	role := constants.RoleUnknown
	for i := dateIdx + 1; i < len(tokens); i++ {
		if r, ok := constants.RoleFromToken(tokens[i]); ok {
			roleIdx = i
			role = r
			break
		}
	}
	if roleIdx < 0 {
		return nil, false
	}

	// Numeric fragments between date and role concatenate into the patient
	// identifier, separators stripped.
	var idBuilder strings.Builder
	for _, tok := range tokens[dateIdx+1 : roleIdx] {
		if !numericPattern.MatchString(tok) {
			continue
		}
		for _, r := range tok {
			if r >= '0' && r <= '9' {
				idBuilder.WriteRune(r)
			}
		}
	}

	// After the role: the grade is the third anchor, scanned from the end
	// backward. Everything between role and grade is the hospital name; with
	// no grade token, all remaining tokens are.
	grade := constants.GradeUnknown
	gradeIdx := len(tokens)
	for i := len(tokens) - 1; i > roleIdx; i-- {
		if g, ok := constants.GradeFromToken(tokens[i]); ok {
			grade = g
			gradeIdx = i
			break
		}
	}
	hospital := strings.Join(tokens[roleIdx+1:gradeIdx], " ")
	if hospital == "" {
		hospital = "Unknown"
	}

	return &entity.ProcedureRecord{
		Procedure:         procedure,
		Laterality:        laterality,
		Date:              date,
		PatientIdentifier: idBuilder.String(),
		Role:              role,
		Hospital:          hospital,
		TrainingGrade:     grade,
	}, true
}

// ClassifyRows folds ClassifyRow over a page's rows, in order. Rows that are
// not data rows lower the yield, nothing else.
func ClassifyRows(rows []extract.Row) []*entity.ProcedureRecord {
	records := make([]*entity.ProcedureRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := ClassifyRow(row); ok {
			records = append(records, rec)
		}
	}
	return records
}
