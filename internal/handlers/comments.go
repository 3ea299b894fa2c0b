package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"imageboard/internal/comments"
	"imageboard/internal/middleware"
	"imageboard/internal/models"
	"imageboard/internal/storage"
)

const recentCommentsLimit = 100

type CommentHandler struct {
	store storage.Storage
}

func NewCommentHandler(store storage.Storage) *CommentHandler {
	return &CommentHandler{store: store}
}

// GetPostComments returns the post's comments as a nested tree, newest
// first at every level.
func (h *CommentHandler) GetPostComments(c *gin.Context) {
	postID := c.Param("id")

	if _, err := h.store.GetPostByID(c.Request.Context(), postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("failed to load post %s: %v", postID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comments"})
		return
	}

	flat, err := h.store.CommentsByPost(c.Request.Context(), postID)
	if err != nil {
		log.Printf("failed to load comments for post %s: %v", postID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, comments.BuildTree(flat))
}

// ListComments is the flat comment query endpoint: filter by postId or
// parentId, or get the most recent comments site-wide.
func (h *CommentHandler) ListComments(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		flat []models.Comment
		err  error
	)
	switch {
	case c.Query("postId") != "":
		flat, err = h.store.CommentsByPost(ctx, c.Query("postId"))
	case c.Query("parentId") != "":
		flat, err = h.store.CommentsByParent(ctx, c.Query("parentId"))
	default:
		flat, err = h.store.RecentComments(ctx, recentCommentsLimit)
	}
	if err != nil {
		log.Printf("failed to list comments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": flat})
}

// CreateComment adds a comment, optionally as a reply. A reply's parent
// must exist and belong to the same post.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Some clients send the string "null" for top-level comments.
	if req.ParentID != nil && (*req.ParentID == "" || *req.ParentID == "null") {
		req.ParentID = nil
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetPostByID(ctx, req.PostID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("failed to load post %s: %v", req.PostID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	if req.ParentID != nil {
		parent, err := h.store.GetCommentByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Parent comment not found"})
				return
			}
			log.Printf("failed to load parent comment %s: %v", *req.ParentID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
			return
		}
		if parent.PostID != req.PostID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parent comment belongs to a different post"})
			return
		}
	}

	userID := middleware.CurrentUserID(c)
	comment := &models.Comment{
		PostID:   req.PostID,
		UserID:   &userID,
		ParentID: req.ParentID,
		Text:     req.Text,
	}
	if err := h.store.CreateComment(ctx, comment); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Parent comment not found"})
			return
		}
		log.Printf("failed to create comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// UpdateComment edits the comment text. Author or admin only.
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.store.GetCommentByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		log.Printf("failed to load comment %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}

	if !h.canModify(c, comment) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to edit this comment"})
		return
	}

	updated, err := h.store.UpdateCommentText(c.Request.Context(), id, req.Text)
	if err != nil {
		log.Printf("failed to update comment %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteComment removes the comment and all of its replies.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id := c.Param("id")

	comment, err := h.store.GetCommentByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		log.Printf("failed to load comment %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	if !h.canModify(c, comment) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this comment"})
		return
	}

	if err := h.store.DeleteCommentTree(c.Request.Context(), id); err != nil {
		log.Printf("failed to delete comment %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// VoteComment sets the caller's vote on a comment to -1, 0 or +1.
func (h *CommentHandler) VoteComment(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Value *int `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || *req.Value < -1 || *req.Value > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vote value must be -1, 0 or 1"})
		return
	}

	err := h.store.SetCommentVote(c.Request.Context(), middleware.CurrentUserID(c), id, *req.Value)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		log.Printf("failed to vote on comment %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	comment, err := h.store.GetCommentByID(c.Request.Context(), id)
	if err != nil {
		log.Printf("failed to reload comment %s: %v", id, err)
		c.JSON(http.StatusOK, gin.H{"message": "Vote recorded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upvotes": comment.Upvotes, "downvotes": comment.Downvotes})
}

func (h *CommentHandler) canModify(c *gin.Context, comment *models.Comment) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	return comment.UserID != nil && *comment.UserID == middleware.CurrentUserID(c)
}
