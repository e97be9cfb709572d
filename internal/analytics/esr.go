// Package analytics derives the two downstream views of the ingested record
// set: the ESR summary grid and the cumulative complication-rate series.
// Everything here is a pure function of its input, safe to recompute on
// demand.
package analytics

import (
	"time"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/entity"
)

// CellKey addresses one cell of the ESR grid.
type CellKey struct {
	Category constants.Category
	Role     constants.Role
	Grade    constants.Grade
}

// ESRGrid is the (category, role, grade) count grid with totals.
type ESRGrid struct {
	Counts map[CellKey]int
	From   *time.Time
	To     time.Time
}

// BuildESRGrid buckets the records into the summary grid over the inclusive
// window [from, to]; a nil from means the beginning of time and a nil to
// defaults to now. Records whose procedure matches no category keyword, or
// whose role or grade is outside the grid's closed vocabularies, are
// excluded from the grid entirely.
func BuildESRGrid(records []*entity.ProcedureRecord, from, to *time.Time) *ESRGrid {
	end := time.Now().UTC()
	if to != nil {
		end = *to
	}

	grid := &ESRGrid{
		Counts: make(map[CellKey]int),
		From:   from,
		To:     end,
	}

	gridRole := make(map[constants.Role]struct{}, len(constants.GridRoles))
	for _, r := range constants.GridRoles {
		gridRole[r] = struct{}{}
	}
	gridGrade := make(map[constants.Grade]struct{}, len(constants.GridGrades))
	for _, g := range constants.GridGrades {
		gridGrade[g] = struct{}{}
	}

	for _, rec := range records {
		if from != nil && rec.Date.Before(*from) {
			continue
		}
		if rec.Date.After(end) {
			continue
		}
		category, ok := constants.CategoryFor(rec.Procedure)
		if !ok {
			continue
		}
		if _, ok := gridRole[rec.Role]; !ok {
			continue
		}
		if _, ok := gridGrade[rec.TrainingGrade]; !ok {
			continue
		}
		grid.Counts[CellKey{Category: category, Role: rec.Role, Grade: rec.TrainingGrade}]++
	}
	return grid
}

// Cell returns the count for one (category, role, grade) cell.
func (g *ESRGrid) Cell(category constants.Category, role constants.Role, grade constants.Grade) int {
	return g.Counts[CellKey{Category: category, Role: role, Grade: grade}]
}

// RowTotal sums a (category, role) pair across all grades.
func (g *ESRGrid) RowTotal(category constants.Category, role constants.Role) int {
	total := 0
	for key, n := range g.Counts {
		if key.Category == category && key.Role == role {
			total += n
		}
	}
	return total
}

// GradeTotal sums one grade column across all categories and roles.
func (g *ESRGrid) GradeTotal(grade constants.Grade) int {
	total := 0
	for key, n := range g.Counts {
		if key.Grade == grade {
			total += n
		}
	}
	return total
}

// GrandTotal sums every cell of the grid.
func (g *ESRGrid) GrandTotal() int {
	total := 0
	for _, n := range g.Counts {
		total += n
	}
	return total
}
