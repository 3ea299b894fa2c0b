package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"imageboard/internal/database"
	"imageboard/internal/handlers"
	"imageboard/internal/middleware"
	"imageboard/internal/storage/postgres"
	"imageboard/internal/upload"
)

type Server struct {
	db      database.Service
	handler *handlers.Handler
}

// NewServer creates and configures a new server
func NewServer() *http.Server {
	db := database.New()

	store := postgres.New(db.GetDB())
	uploads := upload.NewClientFromEnv()

	newServer := &Server{
		db:      db,
		handler: handlers.NewHandler(store, uploads),
	}

	router := newServer.RegisterRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // local dev fallback
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s\n", port)
	fmt.Println("📝 Press Ctrl+C to stop the server")

	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.db.Health())
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Post routes (public reads)
		api.GET("/posts", s.handler.Post.GetPosts)
		api.GET("/posts/:id", s.handler.Post.GetPost)

		// Comment routes (public reads)
		api.GET("/posts/:id/comments", s.handler.Comment.GetPostComments)
		api.GET("/comments", s.handler.Comment.ListComments)

		// User routes (public reads)
		api.GET("/users/:id", s.handler.User.GetUserProfile)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth protected routes
			protected.GET("/me", s.handler.Auth.GetMe)
			protected.PATCH("/me", s.handler.Auth.UpdateMe)
			protected.GET("/me/posts", s.handler.Post.GetMyPosts)
			protected.GET("/me/liked", s.handler.Post.GetLikedPosts)
			protected.GET("/me/saved", s.handler.Post.GetSavedPosts)

			// Post protected routes
			protected.POST("/posts", s.handler.Post.CreatePost)
			protected.POST("/upload", s.handler.Upload.Upload)
			protected.PATCH("/posts/:id", s.handler.Post.UpdateTags)
			protected.DELETE("/posts/:id", s.handler.Post.DeletePost)
			protected.POST("/posts/:id/vote", s.handler.Post.VotePost)
			protected.POST("/posts/:id/save", s.handler.Post.ToggleSave)

			// Comment protected routes
			protected.POST("/comments", s.handler.Comment.CreateComment)
			protected.PATCH("/comments/:id", s.handler.Comment.UpdateComment)
			protected.DELETE("/comments/:id", s.handler.Comment.DeleteComment)
			protected.POST("/comments/:id/vote", s.handler.Comment.VoteComment)

			// Verification
			protected.POST("/verify/send", s.handler.Verify.SendCode)
			protected.POST("/verify/check", s.handler.Verify.CheckCode)

			// User protected routes
			protected.DELETE("/users/:id", s.handler.User.DeleteUser)
		}
	}

	return r
}
