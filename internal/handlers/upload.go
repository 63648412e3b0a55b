package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/middleware"
	"github.com/teamforge/mentor-platform/internal/models"
	"github.com/teamforge/mentor-platform/internal/services"
)

type UploadHandler struct {
	db             *gorm.DB
	storageService *services.StorageService
}

func NewUploadHandler(db *gorm.DB, storageService *services.StorageService) *UploadHandler {
	return &UploadHandler{db: db, storageService: storageService}
}

// UploadAvatar stores a profile picture and updates the user record
func (h *UploadHandler) UploadAvatar(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}

	path, err := h.storageService.SaveAvatar(caller.ID, file)
	if err != nil {
		respondError(c, err)
		return
	}

	url := h.storageService.GetUploadURL() + path
	if err := h.db.Model(&models.User{}).Where("id = ?", caller.ID).Update("avatar_url", url).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatarUrl": url})
}

// UploadResume stores a PDF resume and updates the user record
func (h *UploadHandler) UploadResume(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}

	path, err := h.storageService.SaveResume(caller.ID, file)
	if err != nil {
		respondError(c, err)
		return
	}

	url := h.storageService.GetUploadURL() + path
	if err := h.db.Model(&models.User{}).Where("id = ?", caller.ID).Update("resume_url", url).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"resumeUrl": url})
}
