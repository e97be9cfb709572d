package analytics

import (
	"testing"
	"time"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/entity"
)

func gridRecord(procedure string, role constants.Role, grade constants.Grade, day int) *entity.ProcedureRecord {
	return &entity.ProcedureRecord{
		Procedure:     procedure,
		Role:          role,
		TrainingGrade: grade,
		Date:          time.Date(2023, 6, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildESRGridCounts(t *testing.T) {
	records := []*entity.ProcedureRecord{
		gridRecord("Phacoemulsification with IOL", constants.RolePerformed, constants.GradeST3, 1),
		gridRecord("Phacoemulsification with IOL", constants.RolePerformed, constants.GradeST3, 2),
		gridRecord("Phacoemulsification with IOL", constants.RoleAssisted, constants.GradeST3, 3),
		gridRecord("Trabeculectomy", constants.RolePerformedSupervised, constants.GradeST5, 4),
	}

	grid := BuildESRGrid(records, nil, nil)

	if got := grid.Cell(constants.Cataract, constants.RolePerformed, constants.GradeST3); got != 2 {
		t.Errorf("cataract/P/ST3 = %d, want 2", got)
	}
	if got := grid.Cell(constants.Glaucoma, constants.RolePerformedSupervised, constants.GradeST5); got != 1 {
		t.Errorf("glaucoma/PS/ST5 = %d, want 1", got)
	}
	if got := grid.RowTotal(constants.Cataract, constants.RolePerformed); got != 2 {
		t.Errorf("cataract/P row total = %d, want 2", got)
	}
	if got := grid.GradeTotal(constants.GradeST3); got != 3 {
		t.Errorf("ST3 column total = %d, want 3", got)
	}
	if got := grid.GrandTotal(); got != 4 {
		t.Errorf("grand total = %d, want 4", got)
	}
}

func TestBuildESRGridExcludesUnknownVocabularies(t *testing.T) {
	records := []*entity.ProcedureRecord{
		gridRecord("Phacoemulsification", constants.RolePerformed, constants.GradeST3, 1),
		// No category keyword matches.
		gridRecord("Unlisted minor op", constants.RolePerformed, constants.GradeST3, 2),
		// Grade outside the grid vocabulary.
		gridRecord("Phacoemulsification", constants.RolePerformed, constants.GradeUnknown, 3),
		// Role outside the grid vocabulary.
		gridRecord("Phacoemulsification", constants.RoleUnknown, constants.GradeST3, 4),
	}

	grid := BuildESRGrid(records, nil, nil)
	if got := grid.GrandTotal(); got != 1 {
		t.Errorf("grand total = %d, want 1 (exclusions must not inflate totals)", got)
	}
}

func TestBuildESRGridWindowIsInclusive(t *testing.T) {
	records := []*entity.ProcedureRecord{
		gridRecord("Phacoemulsification", constants.RolePerformed, constants.GradeST3, 1),
		gridRecord("Phacoemulsification", constants.RolePerformed, constants.GradeST3, 15),
		gridRecord("Phacoemulsification", constants.RolePerformed, constants.GradeST3, 30),
	}

	from := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	grid := BuildESRGrid(records, &from, &to)
	if got := grid.GrandTotal(); got != 2 {
		t.Errorf("grand total = %d, want 2 (both window edges inclusive)", got)
	}
}

func TestBuildESRGridFirstMatchingCategoryWins(t *testing.T) {
	// "phaco" is tried before the laser keywords, so a combined procedure
	// lands in Cataract only.
	rec := gridRecord("Phaco with YAG capsulotomy", constants.RolePerformed, constants.GradeST3, 1)
	grid := BuildESRGrid([]*entity.ProcedureRecord{rec}, nil, nil)

	if got := grid.Cell(constants.Cataract, constants.RolePerformed, constants.GradeST3); got != 1 {
		t.Errorf("cataract cell = %d, want 1", got)
	}
	if got := grid.GrandTotal(); got != 1 {
		t.Errorf("grand total = %d, want 1 (at most one category per record)", got)
	}
}

func TestBuildESRGridIsPure(t *testing.T) {
	records := []*entity.ProcedureRecord{
		gridRecord("Phacoemulsification", constants.RolePerformed, constants.GradeST3, 1),
	}
	from := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)

	first := BuildESRGrid(records, &from, &to)
	second := BuildESRGrid(records, &from, &to)
	if first.GrandTotal() != second.GrandTotal() || len(first.Counts) != len(second.Counts) {
		t.Fatal("recomputing the grid changed the result")
	}
}
