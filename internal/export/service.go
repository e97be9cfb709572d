// Package export produces XLSX workbooks from the stored record set: the ESR
// summary grid, the PCR rate series and the flat record listing.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/analytics"
	"github.com/tbuckley92/eyelog/internal/entity"
	"github.com/tbuckley92/eyelog/internal/repository"
)

// Service is a tiny façade over the record repository that produces XLSX
// bytes for exports.
type Service struct {
	records repository.RecordRepository
	logger  *slog.Logger
}

func NewService(records repository.RecordRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// ExportXLSX returns an XLSX workbook (as bytes) for the given profile and
// date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all records for the profile.
func (s *Service) ExportXLSX(ctx context.Context, profileID uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC)
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	recs, err := s.records.ListRecords(ctx, profileID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	f := excelize.NewFile()
	if err := writeSummarySheet(f, analytics.BuildESRGrid(recs, fromDate, toDate)); err != nil {
		return nil, err
	}
	if err := writeRateSheet(f, analytics.PCRRateSeries(recs)); err != nil {
		return nil, err
	}
	if err := writeRecordsSheet(f, recs); err != nil {
		return nil, err
	}
	// Drop excelize's default sheet so the summary opens first.
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"profile_id", profileID.String(),
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// writeSummarySheet lays the grid out one row per (category, role) pair, one
// column per grade, with row totals, grade totals and a grand total.
func writeSummarySheet(f *excelize.File, grid *analytics.ESRGrid) error {
	const sheet = "ESR Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(1, 1, "Category")
	write(2, 1, "Role")
	for i, g := range constants.GridGrades {
		write(3+i, 1, string(g))
	}
	totalCol := 3 + len(constants.GridGrades)
	write(totalCol, 1, "Total")

	row := 2
	for _, category := range constants.AllCategories() {
		for _, role := range constants.GridRoles {
			write(1, row, string(category))
			write(2, row, role.Label())
			for i, g := range constants.GridGrades {
				write(3+i, row, grid.Cell(category, role, g))
			}
			write(totalCol, row, grid.RowTotal(category, role))
			row++
		}
	}
	write(1, row, "All")
	for i, g := range constants.GridGrades {
		write(3+i, row, grid.GradeTotal(g))
	}
	write(totalCol, row, grid.GrandTotal())

	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	return nil
}

func writeRateSheet(f *excelize.File, points []analytics.RatePoint) error {
	const sheet = "PCR Rate"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	headers := []string{"Case", "Date", "PCR", "Cumulative Rate (%)", "Stepped Rate (%)"}
	for i, h := range headers {
		write(i+1, 1, h)
	}
	for i, p := range points {
		row := i + 2
		write(1, row, p.CaseNumber)
		write(2, row, p.Date)
		if p.IsPCR {
			write(3, row, "Y")
		} else {
			write(3, row, "")
		}
		write(4, row, p.CumulativeRate)
		write(5, row, p.SteppedRate)
	}

	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "D", "E", 18)
	return nil
}

func writeRecordsSheet(f *excelize.File, recs []*entity.ProcedureRecord) error {
	const sheet = "Records"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	headers := []string{"Date", "Procedure", "Side", "Pt ID", "Role", "Hospital", "Grade", "Complications", "Comment"}
	for i, h := range headers {
		write(i+1, 1, h)
	}
	for i, r := range recs {
		row := i + 2
		write(1, row, r.Date.Format("2006-01-02"))
		write(2, row, r.Procedure)
		write(3, row, string(r.Laterality))
		write(4, row, r.PatientIdentifier)
		write(5, row, r.Role.Label())
		write(6, row, r.Hospital)
		write(7, row, string(r.TrainingGrade))
		write(8, row, joinComplicationLabels(r.Complications))
		if r.Comment != nil {
			write(9, row, truncate(*r.Comment, 140))
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 36)
	_ = f.SetColWidth(sheet, "F", "F", 28)
	_ = f.SetColWidth(sheet, "H", "I", 40)
	return nil
}

func joinComplicationLabels(cs []constants.ComplicationType) string {
	out := ""
	for i, c := range cs {
		if i > 0 {
			out += ", "
		}
		out += string(c)
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
