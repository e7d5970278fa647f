package export

import (
	"fmt"
	"io"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the session rows.
const SheetName = "Results"

// ContentType is the MIME type of the workbook written by WriteResults.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{
	"Exam Session", "Name", "School ID", "Score (%)", "Correct", "Total", "Time Taken (s)", "Start Time", "End Time",
}

// WriteResults writes one row per session, in the given order, below a bold
// header row.
func WriteResults(w io.Writer, sessions []model.SessionSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, s := range sessions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			s.ExamSessionID,
			s.Name,
			s.SchoolID,
			s.TotalScore,
			s.CorrectAnswers,
			s.TotalQuestions,
			s.TimeTaken,
			s.StartTime.UTC().Format(time.RFC3339),
			s.EndTime.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "B", "C", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "H", "I", 22); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename names an export taken at t.
func Filename(t time.Time) string {
	return "exam-results-" + t.UTC().Format("20060102-150405") + ".xlsx"
}
