package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/config"
)

// GitHubService is a thin read-only proxy over the hosting API for a
// project's linked repository: commits, branches, pull requests and
// contributors. It produces no side effects back into the workflow engine.
type GitHubService struct {
	config *config.Config
	client *http.Client
}

func NewGitHubService(cfg *config.Config) *GitHubService {
	return &GitHubService{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type GitHubCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type GitHubBranch struct {
	Name string `json:"name"`
}

type GitHubPullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

type GitHubContributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
	AvatarURL     string `json:"avatar_url"`
}

// ParseRepo extracts "owner/repo" from a repository link.
func ParseRepo(repoURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(repoURL))
	if err != nil {
		return "", apperr.Validation("invalid repository link")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", apperr.Validation("repository link must look like https://github.com/owner/repo")
	}
	return parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"), nil
}

func (s *GitHubService) Commits(repoURL string, limit int) ([]GitHubCommit, error) {
	var commits []GitHubCommit
	if err := s.get(repoURL, fmt.Sprintf("commits?per_page=%d", clampPerPage(limit)), &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

func (s *GitHubService) Branches(repoURL string) ([]GitHubBranch, error) {
	var branches []GitHubBranch
	if err := s.get(repoURL, "branches", &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

func (s *GitHubService) PullRequests(repoURL string) ([]GitHubPullRequest, error) {
	var prs []GitHubPullRequest
	if err := s.get(repoURL, "pulls?state=all", &prs); err != nil {
		return nil, err
	}
	return prs, nil
}

func (s *GitHubService) Contributors(repoURL string) ([]GitHubContributor, error) {
	var contributors []GitHubContributor
	if err := s.get(repoURL, "contributors", &contributors); err != nil {
		return nil, err
	}
	return contributors, nil
}

func (s *GitHubService) get(repoURL, path string, out interface{}) error {
	repo, err := ParseRepo(repoURL)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/repos/%s/%s", s.config.GitHubAPIBase, repo, path), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.config.GitHubToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.GitHubToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.Unavailable(err, "repository host unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperr.NotFound("repository %s not found", repo)
	case resp.StatusCode >= 400:
		return apperr.Unavailable(fmt.Errorf("status %d", resp.StatusCode), "repository host error")
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func clampPerPage(n int) int {
	if n < 1 || n > 100 {
		return 30
	}
	return n
}
