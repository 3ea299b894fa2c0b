package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    string    `gorm:"type:uuid;index" json:"post_id"`
	UserID    *string   `gorm:"type:uuid" json:"user_id,omitempty"`
	ParentID  *string   `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Text      string    `gorm:"not null" json:"text"`
	Upvotes   int       `gorm:"default:0" json:"upvotes"`
	Downvotes int       `gorm:"default:0" json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type CreateCommentRequest struct {
	PostID   string  `json:"postId" binding:"required"`
	ParentID *string `json:"parentId"`
	Text     string  `json:"text" binding:"required"`
}
