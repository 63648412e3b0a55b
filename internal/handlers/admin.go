package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/models"
	"github.com/teamforge/mentor-platform/internal/services"
)

// AdminHandler exposes platform-wide views; every route is behind the
// admin role guard.
type AdminHandler struct {
	db                  *gorm.DB
	notificationService *services.NotificationService
}

func NewAdminHandler(db *gorm.DB, notificationService *services.NotificationService) *AdminHandler {
	return &AdminHandler{db: db, notificationService: notificationService}
}

// GetDashboardStats returns platform counters
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	var users, students, mentors, projects, milestones, tasks, meetings int64

	h.db.Model(&models.User{}).Count(&users)
	h.db.Model(&models.User{}).Where("role = ?", models.RoleStudent).Count(&students)
	h.db.Model(&models.User{}).Where("role = ?", models.RoleMentor).Count(&mentors)
	h.db.Model(&models.Project{}).Count(&projects)
	h.db.Model(&models.Milestone{}).Count(&milestones)
	h.db.Model(&models.Task{}).Count(&tasks)
	h.db.Model(&models.Meeting{}).Count(&meetings)

	var pendingReviews int64
	h.db.Model(&models.Milestone{}).Where("status = ?", models.MilestoneSubmitted).Count(&pendingReviews)

	c.JSON(http.StatusOK, gin.H{
		"users":          users,
		"students":       students,
		"mentors":        mentors,
		"projects":       projects,
		"milestones":     milestones,
		"tasks":          tasks,
		"meetings":       meetings,
		"pendingReviews": pendingReviews,
	})
}

// ListUsers returns every account
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var users []models.User
	if err := h.db.Order("created_at DESC").Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, u.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"users": responses, "total": len(responses)})
}

// ListProjects returns every project with leads preloaded
func (h *AdminHandler) ListProjects(c *gin.Context) {
	var projects []models.Project
	err := h.db.Preload("Owner").Preload("Mentor").
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects, "total": len(projects)})
}

// PurgeNotifications runs the expiry sweep on demand
func (h *AdminHandler) PurgeNotifications(c *gin.Context) {
	purged, err := h.notificationService.PurgeExpired()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purged": purged})
}
