package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamforge/mentor-platform/internal/config"
	"github.com/teamforge/mentor-platform/internal/database"
	"github.com/teamforge/mentor-platform/internal/handlers"
	"github.com/teamforge/mentor-platform/internal/middleware"
	"github.com/teamforge/mentor-platform/internal/models"
	"github.com/teamforge/mentor-platform/internal/services"
)

func SetupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":       "ok",
			"db_connected": database.GetDB() != nil,
		})
	})

	// Serve uploaded files
	wd, _ := os.Getwd()
	router.Static("/uploads", filepath.Join(wd, cfg.UploadDir))

	db := database.GetDB()

	// Initialize services; the workflow engine takes its collaborators at
	// construction time.
	authz := services.NewAuthorizer(db)
	notificationService := services.NewNotificationService(db, time.Now)
	emailService := services.NewEmailService(cfg)
	storageService := services.NewStorageService(cfg)
	teamService := services.NewTeamService(db, authz, notificationService, emailService)
	authService := services.NewAuthService(db, cfg, teamService)
	projectService := services.NewProjectService(db, authz)
	milestoneService := services.NewMilestoneService(db, authz, notificationService)
	taskService := services.NewTaskService(db, authz, notificationService, storageService)
	sprintService := services.NewSprintService(db, authz)
	meetingService := services.NewMeetingService(db, authz, notificationService, time.Now)
	githubService := services.NewGitHubService(cfg)
	reportService := services.NewReportService(cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService)
	teamHandler := handlers.NewTeamHandler(teamService)
	milestoneHandler := handlers.NewMilestoneHandler(milestoneService)
	taskHandler := handlers.NewTaskHandler(taskService)
	sprintHandler := handlers.NewSprintHandler(sprintService)
	meetingHandler := handlers.NewMeetingHandler(meetingService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	githubHandler := handlers.NewGitHubHandler(projectService, githubService)
	reportHandler := handlers.NewReportHandler(projectService, sprintService, milestoneService, reportService)
	uploadHandler := handlers.NewUploadHandler(db, storageService)
	adminHandler := handlers.NewAdminHandler(db, notificationService)

	api := router.Group("/api")

	// Middleware to check database readiness
	api.Use(func(c *gin.Context) {
		if database.GetDB() == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service initializing, please try again shortly",
			})
			return
		}
		c.Next()
	})

	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)

			authProtected := auth.Group("")
			authProtected.Use(middleware.AuthMiddleware(authService))
			{
				authProtected.GET("/me", authHandler.GetCurrentUser)
				authProtected.PUT("/profile", authHandler.UpdateProfile)
				authProtected.POST("/change-password", authHandler.ChangePassword)
			}
		}

		// Project routes
		projects := api.Group("/projects")
		projects.Use(middleware.AuthMiddleware(authService))
		{
			projects.POST("", projectHandler.Create)
			projects.GET("", projectHandler.ListMine)
			projects.GET("/:id", projectHandler.Get)
			projects.PUT("/:id", projectHandler.Update)
			projects.DELETE("/:id", projectHandler.Delete)
			projects.POST("/:id/mentor", projectHandler.AssignMentor)

			// Team membership
			projects.GET("/:id/team", teamHandler.ListMembers)
			projects.POST("/:id/team", teamHandler.AddMember)
			projects.POST("/:id/team/claim", teamHandler.Claim)
			projects.DELETE("/:id/team/:email", teamHandler.RemoveMember)

			// Milestones
			projects.GET("/:id/milestones", milestoneHandler.List)
			projects.POST("/:id/milestones", milestoneHandler.Create)

			// Tasks
			projects.GET("/:id/tasks", taskHandler.List)
			projects.POST("/:id/tasks", taskHandler.Create)

			// Sprints
			projects.GET("/:id/sprints", sprintHandler.List)
			projects.POST("/:id/sprints", sprintHandler.Create)

			// Meetings
			projects.GET("/:id/meetings", meetingHandler.List)
			projects.POST("/:id/meetings", meetingHandler.Create)

			// Linked repository (read-only proxy)
			projects.GET("/:id/repo/commits", githubHandler.Commits)
			projects.GET("/:id/repo/branches", githubHandler.Branches)
			projects.GET("/:id/repo/pulls", githubHandler.PullRequests)
			projects.GET("/:id/repo/contributors", githubHandler.Contributors)

			// Reports
			projects.GET("/:id/report", reportHandler.ProjectReport)
		}

		// Milestone routes
		milestones := api.Group("/milestones")
		milestones.Use(middleware.AuthMiddleware(authService))
		{
			milestones.GET("/:milestoneId", milestoneHandler.Get)
			milestones.PUT("/:milestoneId", milestoneHandler.Update)
			milestones.DELETE("/:milestoneId", milestoneHandler.Delete)
			milestones.POST("/:milestoneId/start", milestoneHandler.Start)
			milestones.POST("/:milestoneId/submit", milestoneHandler.Submit)
			milestones.POST("/:milestoneId/review", milestoneHandler.Review)
		}

		// Task routes
		tasks := api.Group("/tasks")
		tasks.Use(middleware.AuthMiddleware(authService))
		{
			tasks.PUT("/:taskId", taskHandler.Update)
			tasks.DELETE("/:taskId", taskHandler.Delete)
			tasks.POST("/:taskId/start", taskHandler.Start)
			tasks.POST("/:taskId/submit", taskHandler.Submit)
			tasks.POST("/:taskId/review", taskHandler.Review)
			tasks.PUT("/:taskId/sprint", taskHandler.AssignSprint)
		}

		// Sprint routes
		sprints := api.Group("/sprints")
		sprints.Use(middleware.AuthMiddleware(authService))
		{
			sprints.GET("/:sprintId", sprintHandler.Get)
			sprints.PUT("/:sprintId", sprintHandler.Update)
			sprints.DELETE("/:sprintId", sprintHandler.Delete)
			sprints.GET("/:sprintId/burndown", sprintHandler.Burndown)
			sprints.GET("/:sprintId/report", reportHandler.SprintReport)
		}

		// Meeting routes
		meetings := api.Group("/meetings")
		meetings.Use(middleware.AuthMiddleware(authService))
		{
			meetings.POST("/:meetingId/join", meetingHandler.Join)
			meetings.PUT("/:meetingId/status", meetingHandler.UpdateStatus)
			meetings.DELETE("/:meetingId", meetingHandler.Delete)
		}

		// Notification routes
		notifications := api.Group("/notifications")
		notifications.Use(middleware.AuthMiddleware(authService))
		{
			notifications.GET("", notificationHandler.List)
			notifications.PUT("/:notificationId/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.DELETE("/:notificationId", notificationHandler.Delete)
		}

		// Upload routes
		uploads := api.Group("/uploads")
		uploads.Use(middleware.AuthMiddleware(authService))
		{
			uploads.POST("/avatar", uploadHandler.UploadAvatar)
			uploads.POST("/resume", uploadHandler.UploadResume)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(authService), middleware.RequireAdmin())
		{
			admin.GET("/stats", adminHandler.GetDashboardStats)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/projects", adminHandler.ListProjects)
			admin.POST("/notifications/purge", adminHandler.PurgeNotifications)
		}
	}

	return router
}

// SeedAdminUser creates a default admin user if none exists
func SeedAdminUser(cfg *config.Config) error {
	db := database.GetDB()

	var admin models.User
	if err := db.Where("role = ?", models.RoleAdmin).First(&admin).Error; err == nil {
		return nil // admin exists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Create(&models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		FirstName:    "Admin",
	}).Error
}
