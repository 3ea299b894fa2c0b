package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"imageboard/internal/middleware"
	"imageboard/internal/models"
	"imageboard/internal/query"
	"imageboard/internal/ranking"
	"imageboard/internal/storage"
	"imageboard/internal/upload"
)

type PostHandler struct {
	store   storage.Storage
	uploads *upload.Client
}

func NewPostHandler(store storage.Storage, uploads *upload.Client) *PostHandler {
	return &PostHandler{store: store, uploads: uploads}
}

// GetPosts is the main listing endpoint. Besides the regular paginated
// JSON response it supports two machine modes: api=true returns a bare
// array of image URLs, and api=true&redirect=true&index=N issues a 302
// to the Nth image of the page.
func (h *PostHandler) GetPosts(c *gin.Context) {
	values := c.Request.URL.Query()

	page, err := h.store.ListPosts(c.Request.Context(), storage.ListArgs{
		Filter: query.ParseFilter(values),
		Sort:   query.ParseSort(values),
		Page:   query.ParsePage(values),
		Mode:   ranking.ParseMode(values.Get("rankingMode")),
	})
	if err != nil {
		log.Printf("failed to list posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load posts"})
		return
	}

	if values.Get("api") != "true" {
		c.JSON(http.StatusOK, page)
		return
	}

	if values.Get("redirect") == "true" {
		index, _ := strconv.Atoi(values.Get("index"))
		if index < 0 || index >= len(page.Posts) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":          "Index out of range",
				"message":        fmt.Sprintf("Requested index %d but only %d posts found", index, len(page.Posts)),
				"availableRange": fmt.Sprintf("0-%d", len(page.Posts)-1),
			})
			return
		}
		c.Redirect(http.StatusFound, page.Posts[index].URL)
		return
	}

	urls := make([]string, len(page.Posts))
	for i := range page.Posts {
		urls[i] = page.Posts[i].URL
	}
	c.JSON(http.StatusOK, urls)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	id := c.Param("id")

	post, err := h.store.GetPostByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("failed to load post %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}

	counts, err := h.store.CountCommentsByPost(c.Request.Context(), []string{id})
	if err != nil {
		log.Printf("failed to count comments for post %s: %v", id, err)
	} else {
		post.CommentsCount = counts[id]
	}

	c.JSON(http.StatusOK, post)
}

// CreatePost records a post for an already-uploaded image. Most clients
// go through the upload endpoint instead, which stores the blob first.
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := &models.Post{
		UserID:   middleware.CurrentUserID(c),
		URL:      req.URL,
		Tags:     req.Tags,
		Width:    req.Width,
		Height:   req.Height,
		Name:     req.Name,
		Size:     req.Size,
		MimeType: req.MimeType,
	}
	if err := h.store.CreatePost(c.Request.Context(), post); err != nil {
		log.Printf("failed to create post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdateTags replaces a post's tag list. Owners may edit their own posts
// unless the post is locked; admins may always edit.
func (h *PostHandler) UpdateTags(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Tags []string `json:"tags" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.store.GetPostByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("failed to load post %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	admin := middleware.IsAdmin(c)
	if post.UserID != middleware.CurrentUserID(c) && !admin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to edit this post"})
		return
	}
	if post.Locked && !admin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Post is locked"})
		return
	}

	updated, err := h.store.UpdatePostTags(c.Request.Context(), id, req.Tags)
	if err != nil {
		log.Printf("failed to update tags on post %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeletePost removes the stored image first, then the post record with
// its comments, votes and saves.
func (h *PostHandler) DeletePost(c *gin.Context) {
	id := c.Param("id")

	post, err := h.store.GetPostByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("failed to load post %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	if post.UserID != middleware.CurrentUserID(c) && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this post"})
		return
	}

	if h.uploads != nil {
		if err := h.uploads.Delete(c.Request.Context(), []string{post.URL}); err != nil {
			log.Printf("failed to delete image for post %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
			return
		}
	}

	if err := h.store.DeletePost(c.Request.Context(), id); err != nil {
		log.Printf("failed to delete post %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// VotePost sets the caller's vote on a post to -1, 0 or +1.
func (h *PostHandler) VotePost(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Value *int `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || *req.Value < -1 || *req.Value > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vote value must be -1, 0 or 1"})
		return
	}

	err := h.store.SetPostVote(c.Request.Context(), middleware.CurrentUserID(c), id, *req.Value)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("failed to vote on post %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	post, err := h.store.GetPostByID(c.Request.Context(), id)
	if err != nil {
		log.Printf("failed to reload post %s: %v", id, err)
		c.JSON(http.StatusOK, gin.H{"message": "Vote recorded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upvotes": post.Upvotes, "downvotes": post.Downvotes})
}

// ToggleSave flips whether the post is in the caller's saved list.
func (h *PostHandler) ToggleSave(c *gin.Context) {
	id := c.Param("id")

	saved, err := h.store.ToggleSavedPost(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("failed to toggle save on post %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// GetMyPosts lists the caller's own posts, newest first.
func (h *PostHandler) GetMyPosts(c *gin.Context) {
	posts, err := h.store.PostsByUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		log.Printf("failed to list own posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// GetLikedPosts lists posts the caller upvoted.
func (h *PostHandler) GetLikedPosts(c *gin.Context) {
	posts, err := h.store.PostsVotedBy(c.Request.Context(), middleware.CurrentUserID(c), 1)
	if err != nil {
		log.Printf("failed to list liked posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// GetSavedPosts lists posts the caller saved.
func (h *PostHandler) GetSavedPosts(c *gin.Context) {
	posts, err := h.store.PostsSavedBy(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		log.Printf("failed to list saved posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}
