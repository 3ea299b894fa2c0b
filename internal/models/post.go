package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Post struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"type:uuid;index" json:"user_id"`
	URL       string         `gorm:"not null" json:"url"`
	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`
	Upvotes   int            `gorm:"default:0" json:"upvotes"`
	Downvotes int            `gorm:"default:0" json:"downvotes"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Name      string         `json:"name"`
	Size      int64          `json:"size"`
	MimeType  string         `json:"type"`
	Locked    bool           `gorm:"default:false" json:"locked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Filled per request, never stored.
	CommentsCount int `gorm:"-" json:"comments_count"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// NetScore is derived from the two counters; it is never stored.
func (p *Post) NetScore() int {
	return p.Upvotes - p.Downvotes
}

type CreatePostRequest struct {
	URL      string   `json:"url" binding:"required"`
	Tags     []string `json:"tags"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Name     string   `json:"name"`
	Size     int64    `json:"size"`
	MimeType string   `json:"type"`
}
