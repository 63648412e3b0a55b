package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teamforge/mentor-platform/internal/middleware"
	"github.com/teamforge/mentor-platform/internal/models"
	"github.com/teamforge/mentor-platform/internal/services"
)

type MilestoneHandler struct {
	milestoneService *services.MilestoneService
}

func NewMilestoneHandler(milestoneService *services.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestoneService: milestoneService}
}

func (h *MilestoneHandler) Create(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	var req models.CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	milestone, err := h.milestoneService.Create(projectID, caller, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"milestone": milestone})
}

func (h *MilestoneHandler) List(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	milestones, err := h.milestoneService.List(projectID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestones": milestones, "total": len(milestones)})
}

func (h *MilestoneHandler) Get(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	milestoneID, err := uuid.Parse(c.Param("milestoneId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid milestone ID"})
		return
	}

	milestone, err := h.milestoneService.Get(milestoneID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": milestone})
}

func (h *MilestoneHandler) Update(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	milestoneID, err := uuid.Parse(c.Param("milestoneId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid milestone ID"})
		return
	}

	var req models.UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	milestone, err := h.milestoneService.Update(milestoneID, caller, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": milestone})
}

// Start moves a milestone into progress
func (h *MilestoneHandler) Start(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	milestoneID, err := uuid.Parse(c.Param("milestoneId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid milestone ID"})
		return
	}

	milestone, err := h.milestoneService.Start(milestoneID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": milestone})
}

// Submit records the proof of work for review
func (h *MilestoneHandler) Submit(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	milestoneID, err := uuid.Parse(c.Param("milestoneId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid milestone ID"})
		return
	}

	var req models.SubmitMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	milestone, err := h.milestoneService.Submit(milestoneID, caller, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": milestone})
}

// Review approves or rejects a submitted milestone (mentor/admin)
func (h *MilestoneHandler) Review(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	milestoneID, err := uuid.Parse(c.Param("milestoneId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid milestone ID"})
		return
	}

	var req models.ReviewMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	milestone, err := h.milestoneService.Review(milestoneID, caller, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": milestone})
}

func (h *MilestoneHandler) Delete(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	milestoneID, err := uuid.Parse(c.Param("milestoneId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid milestone ID"})
		return
	}

	if err := h.milestoneService.Delete(milestoneID, caller); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
