// Package postgres implements storage.Storage on gorm. Tags live in a
// text[] column so the filter conditions translate to array operators.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"imageboard/internal/models"
	"imageboard/internal/query"
	"imageboard/internal/storage"
)

type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// applyFilter translates the filter into SQL conditions. The exclude
// modes stay a conjunction of per-tag conditions, mirroring the pure
// predicate in the query package.
func applyFilter(db *gorm.DB, f query.Filter) *gorm.DB {
	if len(f.Tags) > 0 {
		if f.MatchAll {
			db = db.Where("tags @> ?", pq.Array(f.Tags))
		} else {
			db = db.Where("tags && ?", pq.Array(f.Tags))
		}
	}

	if f.ExcludeID != "" {
		db = db.Where("id <> ?", f.ExcludeID)
	}

	if len(f.ExcludedTags) > 0 {
		if f.MatchExcludedAll {
			db = db.Where("NOT (tags @> ?)", pq.Array(f.ExcludedTags))
		} else {
			for _, tag := range f.ExcludedTags {
				db = db.Where("NOT (? = ANY(tags))", tag)
			}
		}
	}

	for prefix, value := range f.Special {
		if prefix == query.DangerPrefix && value == "sfw" {
			db = db.Where("NOT (? = ANY(tags)) OR ? = ANY(tags)", query.TagNSFW, query.TagSFW)
		} else {
			db = db.Where("? = ANY(tags)", prefix+":"+value)
		}
	}

	if f.DateFrom != nil {
		db = db.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		db = db.Where("created_at <= ?", *f.DateTo)
	}

	return db
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) UserExists(ctx context.Context, username, email string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("User").First(&post, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context, args storage.ListArgs) (*storage.PostPage, error) {
	build := func() *gorm.DB {
		return applyFilter(s.db.WithContext(ctx).Model(&models.Post{}), args.Filter)
	}

	if args.Sort.By == query.SortByVotes || args.Sort.By == query.SortByDate {
		var total int64
		if err := build().Count(&total).Error; err != nil {
			return nil, err
		}

		q := build().Preload("User")
		asc := args.Sort.Ascending()
		if args.Sort.By == query.SortByVotes {
			if asc {
				q = q.Order("upvotes asc").Order("downvotes desc")
			} else {
				q = q.Order("upvotes desc").Order("downvotes asc")
			}
		} else if asc {
			q = q.Order("created_at asc")
		} else {
			q = q.Order("created_at desc")
		}

		var posts []models.Post
		if err := q.Offset(args.Page.Skip()).Limit(args.Page.Limit).Find(&posts).Error; err != nil {
			return nil, err
		}

		// The two-key votes sort is not net-score order; restore a total
		// order within the page.
		if args.Sort.By == query.SortByVotes {
			storage.SortByNet(posts, asc)
		}

		return &storage.PostPage{
			Posts:   posts,
			Page:    args.Page.Page,
			Limit:   args.Page.Limit,
			Total:   int(total),
			HasMore: args.Page.Skip()+args.Page.Limit < int(total),
		}, nil
	}

	var posts []models.Post
	if err := build().Preload("User").Limit(storage.RankingFetchLimit).Find(&posts).Error; err != nil {
		return nil, err
	}

	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	counts, err := s.CountCommentsByPost(ctx, ids)
	if err != nil {
		return nil, err
	}

	return storage.RankPage(posts, counts, args.Mode, args.Page, time.Now().UTC()), nil
}

func (s *Store) UpdatePostTags(ctx context.Context, id string, tags []string) (*models.Post, error) {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Update("tags", pq.StringArray(tags))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, storage.ErrNotFound
	}
	return s.GetPostByID(ctx, id)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.SavedPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, "id = ?", id).Error
	})
}

func (s *Store) PostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&posts).Error
	return posts, err
}

func (s *Store) PostsVotedBy(ctx context.Context, userID string, value int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN votes ON votes.post_id = posts.id").
		Where("votes.user_id = ? AND votes.value = ?", userID, value).
		Order("posts.created_at desc").
		Find(&posts).Error
	return posts, err
}

func (s *Store) PostsSavedBy(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", userID).
		Order("posts.created_at desc").
		Find(&posts).Error
	return posts, err
}

// === Comments ===

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	var post models.Post
	if err := s.db.WithContext(ctx).Select("id").First(&post, "id = ?", comment.PostID).Error; err != nil {
		return notFound(err)
	}
	if comment.ParentID != nil {
		var parent models.Comment
		if err := s.db.WithContext(ctx).Select("id").First(&parent, "id = ?", *comment.ParentID).Error; err != nil {
			return notFound(err)
		}
	}
	return s.db.WithContext(ctx).Create(comment).Error
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&comment, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

func (s *Store) CommentsByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Preload("User").
		Order("created_at desc").
		Find(&comments).Error
	return comments, err
}

func (s *Store) CommentsByParent(ctx context.Context, parentID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Preload("User").
		Order("created_at desc").
		Find(&comments).Error
	return comments, err
}

func (s *Store) RecentComments(ctx context.Context, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at desc").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

func (s *Store) UpdateCommentText(ctx context.Context, id, text string) (*models.Comment, error) {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Update("text", text)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, storage.ErrNotFound
	}
	return s.GetCommentByID(ctx, id)
}

// DeleteCommentTree removes the subtree children-first. Each delete is
// its own statement; a crash mid-cascade leaves a partially deleted
// subtree, whose orphans the tree builder drops on read.
func (s *Store) DeleteCommentTree(ctx context.Context, id string) error {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Select("id").First(&comment, "id = ?", id).Error; err != nil {
		return notFound(err)
	}
	return s.deleteCommentRecursive(ctx, id)
}

func (s *Store) deleteCommentRecursive(ctx context.Context, id string) error {
	var childIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_id = ?", id).
		Pluck("id", &childIDs).Error; err != nil {
		return err
	}
	for _, childID := range childIDs {
		if err := s.deleteCommentRecursive(ctx, childID); err != nil {
			return err
		}
	}
	if err := s.db.WithContext(ctx).Where("comment_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id).Error
}

func (s *Store) CountCommentsByPost(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID string
		N      int
	}
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, count(*) as n").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.PostID] = row.N
	}
	return counts, nil
}

// === Votes and saves ===

func (s *Store) SetPostVote(ctx context.Context, userID, postID string, value int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, "id = ?", postID).Error; err != nil {
			return notFound(err)
		}

		var vote models.Vote
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			First(&vote).Error
		old := 0
		switch {
		case err == nil:
			old = vote.Value
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}
		if old == value {
			return nil
		}

		up, down := models.VoteDeltas(old, value)
		err = tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumns(map[string]interface{}{
				"upvotes":   gorm.Expr("upvotes + ?", up),
				"downvotes": gorm.Expr("downvotes + ?", down),
			}).Error
		if err != nil {
			return err
		}

		switch {
		case value == 0:
			return tx.Delete(&models.Vote{}, vote.ID).Error
		case old == 0:
			return tx.Create(&models.Vote{UserID: userID, PostID: &postID, Value: value}).Error
		default:
			return tx.Model(&models.Vote{}).Where("id = ?", vote.ID).Update("value", value).Error
		}
	})
}

func (s *Store) SetCommentVote(ctx context.Context, userID, commentID string, value int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id").First(&comment, "id = ?", commentID).Error; err != nil {
			return notFound(err)
		}

		var vote models.Vote
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND comment_id = ?", userID, commentID).
			First(&vote).Error
		old := 0
		switch {
		case err == nil:
			old = vote.Value
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}
		if old == value {
			return nil
		}

		up, down := models.VoteDeltas(old, value)
		err = tx.Model(&models.Comment{}).Where("id = ?", commentID).
			UpdateColumns(map[string]interface{}{
				"upvotes":   gorm.Expr("upvotes + ?", up),
				"downvotes": gorm.Expr("downvotes + ?", down),
			}).Error
		if err != nil {
			return err
		}

		switch {
		case value == 0:
			return tx.Delete(&models.Vote{}, vote.ID).Error
		case old == 0:
			return tx.Create(&models.Vote{UserID: userID, CommentID: &commentID, Value: value}).Error
		default:
			return tx.Model(&models.Vote{}).Where("id = ?", vote.ID).Update("value", value).Error
		}
	})
}

func (s *Store) ToggleSavedPost(ctx context.Context, userID, postID string) (bool, error) {
	saved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, "id = ?", postID).Error; err != nil {
			return notFound(err)
		}

		var existing models.SavedPost
		err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = true
			return tx.Create(&models.SavedPost{UserID: userID, PostID: postID}).Error
		default:
			return err
		}
	})
	return saved, err
}
