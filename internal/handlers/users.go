package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"imageboard/internal/middleware"
	"imageboard/internal/storage"
)

type UserHandler struct {
	store storage.Storage
}

func NewUserHandler(store storage.Storage) *UserHandler {
	return &UserHandler{store: store}
}

// GetUserProfile returns a user's public profile together with their
// posts.
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	id := c.Param("id")

	user, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("failed to load user %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	posts, err := h.store.PostsByUser(c.Request.Context(), id)
	if err != nil {
		log.Printf("failed to load posts for user %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "posts": posts})
}

// DeleteUser removes an account. Admin only.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")

	if !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this user"})
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("failed to delete user %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
