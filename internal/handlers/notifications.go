package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teamforge/mentor-platform/internal/middleware"
	"github.com/teamforge/mentor-platform/internal/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns paginated notifications for the current user
func (h *NotificationHandler) List(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notifications, total, unread, err := h.notificationService.List(caller.ID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         total,
		"unread":        unread,
		"page":          page,
	})
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	notifID, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := h.notificationService.MarkRead(caller.ID, notifID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllRead marks every unread notification as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	if err := h.notificationService.MarkAllRead(caller.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete removes one of the caller's notifications
func (h *NotificationHandler) Delete(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	notifID, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := h.notificationService.Delete(caller.ID, notifID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
