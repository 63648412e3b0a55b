package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teamforge/mentor-platform/internal/middleware"
	"github.com/teamforge/mentor-platform/internal/models"
	"github.com/teamforge/mentor-platform/internal/services"
)

type SprintHandler struct {
	sprintService *services.SprintService
}

func NewSprintHandler(sprintService *services.SprintService) *SprintHandler {
	return &SprintHandler{sprintService: sprintService}
}

func (h *SprintHandler) Create(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	var req models.CreateSprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sprint, err := h.sprintService.Create(projectID, caller, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sprint": sprint})
}

func (h *SprintHandler) List(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	sprints, err := h.sprintService.List(projectID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sprints": sprints, "total": len(sprints)})
}

func (h *SprintHandler) Get(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{"sprint": sprint})
}

func (h *SprintHandler) Update(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	sprintID, err := uuid.Parse(c.Param("sprintId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sprint ID"})
		return
	}

	var req models.UpdateSprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sprint, err := h.sprintService.Update(sprintID, caller, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sprint": sprint})
}

// Burndown returns the ideal-vs-actual series for a sprint
func (h *SprintHandler) Burndown(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	sprintID, err := uuid.Parse(c.Param("sprintId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sprint ID"})
		return
	}

	report, err := h.sprintService.ComputeBurndown(sprintID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"burndown": report})
}

func (h *SprintHandler) Delete(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	sprintID, err := uuid.Parse(c.Param("sprintId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sprint ID"})
		return
	}

	if err := h.sprintService.Delete(sprintID, caller); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
