// Package handlers contains the gin HTTP handlers. Each entity gets its
// own handler struct; Handler bundles them for route registration.
package handlers

import (
	"imageboard/internal/storage"
	"imageboard/internal/upload"
)

type Handler struct {
	Auth    *AuthHandler
	Post    *PostHandler
	Comment *CommentHandler
	User    *UserHandler
	Upload  *UploadHandler
	Verify  *VerifyHandler
}

func NewHandler(store storage.Storage, uploads *upload.Client) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(store),
		Post:    NewPostHandler(store, uploads),
		Comment: NewCommentHandler(store),
		User:    NewUserHandler(store),
		Upload:  NewUploadHandler(store, uploads),
		Verify:  NewVerifyHandler(store),
	}
}
