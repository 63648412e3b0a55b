package services

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/teamforge/mentor-platform/internal/config"
	"github.com/teamforge/mentor-platform/internal/models"
)

// ReportService renders finalized state snapshots as PDF; it never writes
// back into the workflow engine.
type ReportService struct {
	config *config.Config
}

func NewReportService(cfg *config.Config) *ReportService {
	return &ReportService{config: cfg}
}

// GenerateSprintReport renders the sprint's burndown as a PDF.
func (s *ReportService) GenerateSprintReport(project *models.Project, sprint *models.Sprint, report *models.BurndownReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(190, 10, "SPRINT REPORT", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, project.Title+" / "+sprint.Name)
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(190, 6, "Goal: "+sprint.Goal)
	pdf.Ln(6)
	pdf.Cell(190, 6, fmt.Sprintf("Window: %s to %s",
		sprint.StartDate.Format("January 2, 2006"),
		sprint.EndDate.Format("January 2, 2006")))
	pdf.Ln(6)
	pdf.Cell(190, 6, fmt.Sprintf("Committed points: %d   Secured points: %d",
		report.TotalPoints, report.SecuredPoints))
	pdf.Ln(10)

	// Burndown table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 7, "Date", "1", 0, "L", false, 0, "")
	pdf.CellFormat(65, 7, "Ideal", "1", 0, "R", false, 0, "")
	pdf.CellFormat(65, 7, "Actual", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, p := range report.Points {
		pdf.CellFormat(60, 6, p.Date.Format("Jan 2, 2006"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(65, 6, fmt.Sprintf("%.1f", p.Ideal), "1", 0, "R", false, 0, "")
		pdf.CellFormat(65, 6, fmt.Sprintf("%d", p.Actual), "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateProjectReport summarizes milestone progress for a project.
func (s *ReportService) GenerateProjectReport(project *models.Project, milestones []models.Milestone) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(190, 10, "PROJECT PROGRESS REPORT", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, project.Title)
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(190, 5, project.Description, "", "", false)
	pdf.Ln(4)
	pdf.Cell(190, 6, "Status: "+string(project.Status))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(110, 7, "Milestone", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 7, "Status", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 7, "Due", "1", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, m := range milestones {
		due := "-"
		if m.DueDate != nil {
			due = m.DueDate.Format("Jan 2, 2006")
		}
		pdf.CellFormat(110, 6, m.Title, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, string(m.Status), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, due, "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
