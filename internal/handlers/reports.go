package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teamforge/mentor-platform/internal/middleware"
	"github.com/teamforge/mentor-platform/internal/services"
)

// ReportHandler renders PDF snapshots of project and sprint state.
type ReportHandler struct {
	projectService   *services.ProjectService
	sprintService    *services.SprintService
	milestoneService *services.MilestoneService
	reportService    *services.ReportService
}

func NewReportHandler(projectService *services.ProjectService, sprintService *services.SprintService,
	milestoneService *services.MilestoneService, reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{
		projectService:   projectService,
		sprintService:    sprintService,
		milestoneService: milestoneService,
		reportService:    reportService,
	}
}

// SprintReport streams a burndown PDF for one sprint.
func (h *ReportHandler) SprintReport(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	sprintID, err := uuid.Parse(c.Param("sprintId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sprint ID"})
		return
	}

	sprint, err := h.sprintService.Get(sprintID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	project, err := h.projectService.Get(sprint.ProjectID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	burndown, err := h.sprintService.ComputeBurndown(sprintID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	pdf, err := h.reportService.GenerateSprintReport(project, sprint, burndown)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=sprint_%s.pdf", sprintID.String()[:8]))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ProjectReport streams a milestone progress PDF for one project.
func (h *ReportHandler) ProjectReport(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	project, err := h.projectService.Get(projectID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	milestones, err := h.milestoneService.List(projectID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	pdf, err := h.reportService.GenerateProjectReport(project, milestones)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=project_%s.pdf", projectID.String()[:8]))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
