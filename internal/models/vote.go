package models

import "time"

// Vote is the single source of truth for who voted on what. The counters
// on Post and Comment are kept in step by atomic increments derived from
// old-value to new-value transitions.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_votes_user_post;uniqueIndex:idx_votes_user_comment" json:"user_id"`
	PostID    *string   `gorm:"type:uuid;uniqueIndex:idx_votes_user_post" json:"post_id,omitempty"`
	CommentID *string   `gorm:"type:uuid;uniqueIndex:idx_votes_user_comment" json:"comment_id,omitempty"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteDeltas returns the counter increments for an old-to-new vote
// transition. Values are -1, 0 or +1; 0 means no vote.
func VoteDeltas(oldValue, newValue int) (up, down int) {
	if oldValue == 1 {
		up--
	}
	if oldValue == -1 {
		down--
	}
	if newValue == 1 {
		up++
	}
	if newValue == -1 {
		down++
	}
	return up, down
}
