package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teamforge/mentor-platform/internal/middleware"
	"github.com/teamforge/mentor-platform/internal/models"
	"github.com/teamforge/mentor-platform/internal/services"
)

type MeetingHandler struct {
	meetingService *services.MeetingService
}

func NewMeetingHandler(meetingService *services.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService}
}

// Create schedules a meeting; the invite list snapshots the current team
func (h *MeetingHandler) Create(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	var req models.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meeting, err := h.meetingService.Create(projectID, caller, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"meeting": meeting})
}

func (h *MeetingHandler) List(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	meetings, err := h.meetingService.List(projectID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"meetings": meetings, "total": len(meetings)})
}

// Join marks the caller's participant entry joined
func (h *MeetingHandler) Join(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	meetingID, err := uuid.Parse(c.Param("meetingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meeting ID"})
		return
	}

	meeting, err := h.meetingService.Join(meetingID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"meeting": meeting})
}

// UpdateStatus sets an explicit meeting status (creator or mentor)
func (h *MeetingHandler) UpdateStatus(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	meetingID, err := uuid.Parse(c.Param("meetingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meeting ID"})
		return
	}

	var req models.UpdateMeetingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meeting, err := h.meetingService.UpdateStatus(meetingID, caller, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"meeting": meeting})
}

func (h *MeetingHandler) Delete(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	meetingID, err := uuid.Parse(c.Param("meetingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meeting ID"})
		return
	}

	if err := h.meetingService.Delete(meetingID, caller); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
