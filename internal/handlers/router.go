package handlers

import (
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/middleware"
)

// Handlers groups every HTTP handler served by the API.
type Handlers struct {
	Auth    *AuthHandler
	User    *UserHandler
	Team    *TeamHandler
	Task    *TaskHandler
	Comment *CommentHandler
	Health  *HealthHandler
}

// RouterConfig carries the cross-cutting dependencies of the router.
type RouterConfig struct {
	Logger       *slog.Logger
	SessionStore sessions.Store
	Verifier     middleware.TokenVerifier
}

// NewRouter registers all routes on a new engine.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
		middleware.Metrics(),
		sessions.Sessions(constants.SessionCookieName, cfg.SessionStore),
	)

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(cfg.Verifier)

	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.Auth.Signup)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/logout", requireAuth, h.Auth.Logout)
			auth.GET("/me", requireAuth, h.Auth.GetCurrentUser)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", h.User.ListUsers)
			users.GET("/:id", h.User.GetUser)
			users.PATCH("/:id/activate", h.User.ActivateUser)
			users.PATCH("/:id/deactivate", h.User.DeactivateUser)
			users.PATCH("/:id/role", h.User.SetRole)
			users.DELETE("/:id", h.User.DeleteUser)
		}

		teams := api.Group("/teams")
		teams.Use(requireAuth)
		{
			teams.GET("", h.Team.ListTeams)
			teams.GET("/mine", h.Team.MyTeams)
			teams.GET("/available-members", h.Team.AvailableMembers)
			teams.POST("", h.Team.CreateTeam)
			teams.GET("/:id", h.Team.GetTeam)
			teams.PATCH("/:id", h.Team.UpdateTeam)
			teams.DELETE("/:id", h.Team.DeleteTeam)
			teams.POST("/:id/members", h.Team.AddMember)
			teams.DELETE("/:id/members/:user_id", h.Team.RemoveMember)
			teams.GET("/:id/tasks", h.Task.ListTeamTasks)
			teams.POST("/:id/tasks", h.Task.CreateTask)
			teams.POST("/:id/tasks/draft", h.Task.DraftTasks)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("/:id", h.Task.GetTask)
			tasks.PATCH("/:id", h.Task.UpdateTask)
			tasks.DELETE("/:id", h.Task.DeleteTask)
			tasks.GET("/:id/comments", h.Comment.ListComments)
			tasks.POST("/:id/comments", h.Comment.AddComment)
		}

		comments := api.Group("/comments")
		comments.Use(requireAuth)
		{
			comments.PATCH("/:id", h.Comment.EditComment)
			comments.DELETE("/:id", h.Comment.DeleteComment)
		}
	}

	return r
}
