package http

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/phurits/brewpress/internal/auth"
	"github.com/phurits/brewpress/internal/notify"
	"github.com/phurits/brewpress/internal/ws"
)

const (
	// Auth endpoints only; generous enough for real users, tight enough to
	// slow down credential stuffing.
	rateLimitRPS   = 2.0
	rateLimitBurst = 20
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, db *gorm.DB, tokens *auth.Tokens, hub *ws.Hub) {

	// --- Dependencies ---
	env := &Env{DB: db, Tokens: tokens, Notify: notify.NewService(db, hub)}

	// --- Middleware ---
	// /ws carries the session token in its query string, so it stays out of
	// the access log.
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{SkipPaths: []string{"/ws"}}))
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*" // Default to allow all for local dev
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.mu.Lock()
			for ip, v := range limiter.visitors {
				if v.Allow() {
					// Bucket has refilled; the visitor has gone quiet.
					delete(limiter.visitors, ip)
				}
			}
			limiter.mu.Unlock()
		}
	}()

	requireUser := RequireUser(db, tokens)
	requireAdmin := RequireAdmin(db, tokens)

	// --- Auth ---
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", RateLimitMiddleware(limiter), env.Register)
		authGroup.POST("/login", RateLimitMiddleware(limiter), env.Login)
		authGroup.GET("/get-user", requireUser, env.GetUser)
		authGroup.PUT("/update-profile", requireUser, env.UpdateProfile)
		// Older clients POST this; both verbs do the same thing.
		authGroup.PUT("/reset-password", requireUser, env.ResetPassword)
		authGroup.POST("/reset-password", requireUser, env.ResetPassword)
	}

	// --- Categories ---
	categories := router.Group("/categories")
	{
		categories.GET("", env.ListCategories)
		categories.GET("/:id", env.GetCategory)
		categories.POST("", requireAdmin, env.CreateCategory)
		categories.PUT("/:id", requireAdmin, env.UpdateCategory)
		categories.DELETE("/:id", requireAdmin, env.DeleteCategory)
	}

	// --- Posts & engagement ---
	posts := router.Group("/posts")
	{
		posts.GET("", env.ListPosts)
		posts.GET("/admin", requireAdmin, env.ListPostsAdmin)
		posts.GET("/:postId", env.GetPost)
		posts.POST("", requireUser, env.CreatePost)
		posts.PUT("/:postId", requireUser, env.UpdatePost)
		posts.DELETE("/:postId", requireAdmin, env.DeletePost)

		posts.GET("/:postId/like-status", requireUser, env.LikeStatus)
		posts.POST("/:postId/like", requireUser, env.ToggleLike)
		posts.GET("/:postId/comments", env.ListComments)
		posts.POST("/:postId/comments", requireUser, env.AddComment)
		posts.DELETE("/:postId/comments/:commentId", requireUser, env.DeleteComment)
	}

	// --- Notifications ---
	notifications := router.Group("/notifications", requireUser)
	{
		notifications.GET("", env.ListNotifications)
		notifications.PUT("/read-all", env.MarkAllNotificationsRead)
		notifications.PUT("/:notificationId/read", env.MarkNotificationRead)
	}

	// --- WebSocket push ---
	// Browsers cannot set headers on websocket requests, so the token rides
	// in the query string.
	router.GET("/ws", func(c *gin.Context) {
		userID, err := tokens.Verify(c.Query("token"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid token"})
			return
		}
		ws.ServeWs(hub, userID, c.Writer, c.Request)
	})
}
