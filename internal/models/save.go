package models

import "time"

// SavedPost is a toggleable membership: a row exists while the user has
// the post saved.
type SavedPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_saved_user_post" json:"user_id"`
	PostID    string    `gorm:"type:uuid;uniqueIndex:idx_saved_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
