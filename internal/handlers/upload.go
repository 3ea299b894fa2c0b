package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"imageboard/internal/middleware"
	"imageboard/internal/models"
	"imageboard/internal/storage"
	"imageboard/internal/upload"
)

type UploadHandler struct {
	store   storage.Storage
	uploads *upload.Client
}

func NewUploadHandler(store storage.Storage, uploads *upload.Client) *UploadHandler {
	return &UploadHandler{store: store, uploads: uploads}
}

// Upload stores the image with the upload service and only then creates
// the post, so a failed upload never leaves a post without an image.
//
// The multipart form carries the file plus optional tags (JSON array or
// comma-separated), width and height.
func (h *UploadHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	defer file.Close()

	tags := parseTagsField(c.PostForm("tags"))
	width, _ := strconv.Atoi(c.PostForm("width"))
	height, _ := strconv.Atoi(c.PostForm("height"))

	stored, err := h.uploads.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		log.Printf("failed to upload file %s: %v", header.Filename, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload file"})
		return
	}

	post := &models.Post{
		UserID:   middleware.CurrentUserID(c),
		URL:      stored.URL,
		Tags:     tags,
		Width:    width,
		Height:   height,
		Name:     stored.Name,
		Size:     stored.Size,
		MimeType: stored.Type,
	}
	if err := h.store.CreatePost(c.Request.Context(), post); err != nil {
		log.Printf("failed to create post for upload %s: %v", stored.URL, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}
	c.JSON(http.StatusCreated, post)
}

func parseTagsField(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err == nil {
		return tags
	}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
