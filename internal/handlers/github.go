package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/middleware"
	"github.com/teamforge/mentor-platform/internal/services"
)

// GitHubHandler proxies read-only repository data for a project's linked
// repository.
type GitHubHandler struct {
	projectService *services.ProjectService
	githubService  *services.GitHubService
}

func NewGitHubHandler(projectService *services.ProjectService, githubService *services.GitHubService) *GitHubHandler {
	return &GitHubHandler{projectService: projectService, githubService: githubService}
}

func (h *GitHubHandler) Commits(c *gin.Context) {
	repoURL, ok := h.resolveRepo(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	commits, err := h.githubService.Commits(repoURL, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"commits": commits})
}

func (h *GitHubHandler) Branches(c *gin.Context) {
	repoURL, ok := h.resolveRepo(c)
	if !ok {
		return
	}

	branches, err := h.githubService.Branches(repoURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"branches": branches})
}

func (h *GitHubHandler) PullRequests(c *gin.Context) {
	repoURL, ok := h.resolveRepo(c)
	if !ok {
		return
	}

	prs, err := h.githubService.PullRequests(repoURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pullRequests": prs})
}

func (h *GitHubHandler) Contributors(c *gin.Context) {
	repoURL, ok := h.resolveRepo(c)
	if !ok {
		return
	}

	contributors, err := h.githubService.Contributors(repoURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributors": contributors})
}

// resolveRepo checks project access and returns its canonical repository.
func (h *GitHubHandler) resolveRepo(c *gin.Context) (string, bool) {
	caller, _ := middleware.GetCaller(c)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return "", false
	}

	project, err := h.projectService.Get(projectID, caller)
	if err != nil {
		respondError(c, err)
		return "", false
	}

	if project.RepositoryURL == "" {
		respondError(c, apperr.Validation("project has no linked repository"))
		return "", false
	}
	return project.RepositoryURL, true
}
