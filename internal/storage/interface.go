// Package storage defines the contract the HTTP handlers program
// against. Two implementations exist: a gorm/postgres store for
// production and an in-memory store for tests and local development.
package storage

import (
	"context"
	"errors"

	"imageboard/internal/models"
	"imageboard/internal/query"
	"imageboard/internal/ranking"
)

// ErrNotFound is returned when a referenced post, comment or user does
// not exist. Store implementations map their own sentinel errors to it.
var ErrNotFound = errors.New("not found")

// RankingFetchLimit caps how many filtered candidates the ranking path
// loads before scoring them in memory.
const RankingFetchLimit = 1000

// ListArgs carries the parsed listing parameters.
type ListArgs struct {
	Filter query.Filter
	Sort   query.Sort
	Page   query.Page
	Mode   ranking.Mode
}

// PostPage is one page of listing results. In ranking mode Total counts
// the scored candidates, which undercounts when candidates exceed
// RankingFetchLimit.
type PostPage struct {
	Posts   []models.Post `json:"posts"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
	Total   int           `json:"total"`
	HasMore bool          `json:"hasMore"`
}

type Storage interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error

	// Posts
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, args ListArgs) (*PostPage, error)
	UpdatePostTags(ctx context.Context, id string, tags []string) (*models.Post, error)
	// DeletePost removes the post together with its comments, votes and
	// saved-post rows.
	DeletePost(ctx context.Context, id string) error
	PostsByUser(ctx context.Context, userID string) ([]models.Post, error)
	PostsVotedBy(ctx context.Context, userID string, value int) ([]models.Post, error)
	PostsSavedBy(ctx context.Context, userID string) ([]models.Post, error)

	// Comments
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	CommentsByPost(ctx context.Context, postID string) ([]models.Comment, error)
	CommentsByParent(ctx context.Context, parentID string) ([]models.Comment, error)
	RecentComments(ctx context.Context, limit int) ([]models.Comment, error)
	UpdateCommentText(ctx context.Context, id, text string) (*models.Comment, error)
	// DeleteCommentTree removes the comment and every descendant,
	// children before parents. The cascade is not wrapped in a single
	// transaction by every implementation; see the store docs.
	DeleteCommentTree(ctx context.Context, id string) error
	CountCommentsByPost(ctx context.Context, postIDs []string) (map[string]int, error)

	// Votes and saves. Vote values are -1, 0 or +1; 0 clears the vote.
	// A second vote on the same target overwrites the first.
	SetPostVote(ctx context.Context, userID, postID string, value int) error
	SetCommentVote(ctx context.Context, userID, commentID string, value int) error
	ToggleSavedPost(ctx context.Context, userID, postID string) (saved bool, err error)
}
