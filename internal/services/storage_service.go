package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/config"
)

// StorageService writes uploaded blobs to the local upload tree and hands
// back relative references for persistence.
type StorageService struct {
	config *config.Config
}

func NewStorageService(cfg *config.Config) *StorageService {
	os.MkdirAll(cfg.UploadDir, 0755)
	os.MkdirAll(filepath.Join(cfg.UploadDir, "tasks"), 0755)
	os.MkdirAll(filepath.Join(cfg.UploadDir, "avatars"), 0755)
	os.MkdirAll(filepath.Join(cfg.UploadDir, "resumes"), 0755)

	return &StorageService{config: cfg}
}

// AllowedImageExtensions lists valid image extensions
var AllowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// MaxImageSize is the maximum allowed image size (5MB)
const MaxImageSize = 5 * 1024 * 1024

// MaxResumeSize is the maximum allowed resume size (10MB)
const MaxResumeSize = 10 * 1024 * 1024

// ValidateImage checks extension and size without touching disk, so
// callers can reject a whole batch before storing anything.
func (s *StorageService) ValidateImage(file *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !AllowedImageExtensions[ext] {
		return apperr.Validation("invalid file type %s; allowed: jpg, jpeg, png, gif, webp", ext)
	}
	if file.Size > MaxImageSize {
		return apperr.Validation("file %s too large; maximum size is 5MB", file.Filename)
	}
	return nil
}

// SaveTaskScreenshot stores a proof-of-work screenshot under the task's
// directory and returns the relative path plus the original filename.
func (s *StorageService) SaveTaskScreenshot(taskID uuid.UUID, file *multipart.FileHeader) (string, string, error) {
	if err := s.ValidateImage(file); err != nil {
		return "", "", err
	}

	taskDir := filepath.Join(s.config.UploadDir, "tasks", taskID.String())
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return "", "", err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	filename := fmt.Sprintf("%s_%d%s", uuid.New().String()[:8], time.Now().Unix(), ext)
	if err := s.copyUpload(file, filepath.Join(taskDir, filename)); err != nil {
		return "", "", err
	}

	return filepath.Join("tasks", taskID.String(), filename), file.Filename, nil
}

// SaveAvatar stores a profile picture and returns its relative path.
func (s *StorageService) SaveAvatar(userID uuid.UUID, file *multipart.FileHeader) (string, error) {
	if err := s.ValidateImage(file); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	filename := fmt.Sprintf("%s_%d%s", userID.String()[:8], time.Now().Unix(), ext)
	fullPath := filepath.Join(s.config.UploadDir, "avatars", filename)
	if err := s.copyUpload(file, fullPath); err != nil {
		return "", err
	}

	return filepath.Join("avatars", filename), nil
}

// SaveResume stores a PDF resume and returns its relative path.
func (s *StorageService) SaveResume(userID uuid.UUID, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return "", apperr.Validation("invalid file type %s; only PDF allowed", ext)
	}
	if file.Size > MaxResumeSize {
		return "", apperr.Validation("file too large; maximum size is 10MB")
	}

	filename := fmt.Sprintf("%s_%d%s", userID.String()[:8], time.Now().Unix(), ext)
	fullPath := filepath.Join(s.config.UploadDir, "resumes", filename)
	if err := s.copyUpload(file, fullPath); err != nil {
		return "", err
	}

	return filepath.Join("resumes", filename), nil
}

// Delete removes a stored file by its relative path.
func (s *StorageService) Delete(relativePath string) error {
	return os.Remove(filepath.Join(s.config.UploadDir, relativePath))
}

// DeleteTaskScreenshots removes every screenshot stored for a task.
func (s *StorageService) DeleteTaskScreenshots(taskID uuid.UUID) error {
	return os.RemoveAll(filepath.Join(s.config.UploadDir, "tasks", taskID.String()))
}

// GetUploadURL returns the base URL for uploaded files.
func (s *StorageService) GetUploadURL() string {
	return s.config.AppURL + "/uploads/"
}

func (s *StorageService) copyUpload(file *multipart.FileHeader, dst string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
