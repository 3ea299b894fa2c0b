// Package inmemory implements storage.Storage over plain maps. It backs
// the handler and store tests and is handy for running the server
// without a database.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"imageboard/internal/models"
	"imageboard/internal/query"
	"imageboard/internal/storage"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	posts    map[string]*models.Post
	comments map[string]*models.Comment

	postVotes    map[string]map[string]int // userID -> postID -> value
	commentVotes map[string]map[string]int // userID -> commentID -> value
	saved        map[string]map[string]bool

	// Now is swappable so ranking tests can pin the clock.
	Now func() time.Time
}

var _ storage.Storage = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[string]*models.User),
		posts:        make(map[string]*models.Post),
		comments:     make(map[string]*models.Comment),
		postVotes:    make(map[string]map[string]int),
		commentVotes: make(map[string]map[string]int),
		saved:        make(map[string]map[string]bool),
		Now:          time.Now,
	}
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = s.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	u := *user
	s.users[u.ID] = &u
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UserExists(ctx context.Context, username, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	user.UpdatedAt = s.Now().UTC()
	u := *user
	s.users[u.ID] = &u
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	delete(s.postVotes, id)
	delete(s.commentVotes, id)
	delete(s.saved, id)
	return nil
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = s.Now().UTC()
	post.UpdatedAt = post.CreatedAt

	p := clonePost(post)
	s.posts[p.ID] = &p
	return nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := clonePost(p)
	s.attachPostUser(&copied)
	return &copied, nil
}

func (s *Store) ListPosts(ctx context.Context, args storage.ListArgs) (*storage.PostPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Post, 0)
	for _, p := range s.posts {
		if args.Filter.Matches(p) {
			matched = append(matched, clonePost(p))
		}
	}

	if args.Sort.By == query.SortByVotes || args.Sort.By == query.SortByDate {
		asc := args.Sort.Ascending()
		if args.Sort.By == query.SortByDate {
			sort.SliceStable(matched, func(i, j int) bool {
				if asc {
					return matched[i].CreatedAt.Before(matched[j].CreatedAt)
				}
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			})
		} else {
			// Two separate keys, like the SQL sort: upvotes first, then
			// downvotes the other way.
			sort.SliceStable(matched, func(i, j int) bool {
				a, b := matched[i], matched[j]
				if a.Upvotes != b.Upvotes {
					if asc {
						return a.Upvotes < b.Upvotes
					}
					return a.Upvotes > b.Upvotes
				}
				if asc {
					return a.Downvotes > b.Downvotes
				}
				return a.Downvotes < b.Downvotes
			})
		}

		total := len(matched)
		start, end := args.Page.Slice(total)
		pagePosts := matched[start:end]

		if args.Sort.By == query.SortByVotes {
			storage.SortByNet(pagePosts, asc)
		}

		return &storage.PostPage{
			Posts:   pagePosts,
			Page:    args.Page.Page,
			Limit:   args.Page.Limit,
			Total:   total,
			HasMore: args.Page.Skip()+args.Page.Limit < total,
		}, nil
	}

	// Ranking path: cap candidates, score, sort, slice.
	if len(matched) > storage.RankingFetchLimit {
		matched = matched[:storage.RankingFetchLimit]
	}

	ids := make([]string, len(matched))
	for i := range matched {
		ids[i] = matched[i].ID
	}
	counts := s.countComments(ids)

	return storage.RankPage(matched, counts, args.Mode, args.Page, s.Now().UTC()), nil
}

func (s *Store) UpdatePostTags(ctx context.Context, id string, tags []string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p.Tags = append([]string(nil), tags...)
	p.UpdatedAt = s.Now().UTC()

	copied := clonePost(p)
	return &copied, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.posts, id)

	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
			for _, votes := range s.commentVotes {
				delete(votes, cid)
			}
		}
	}
	for _, votes := range s.postVotes {
		delete(votes, id)
	}
	for _, savedSet := range s.saved {
		delete(savedSet, id)
	}
	return nil
}

func (s *Store) PostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Post, 0)
	for _, p := range s.posts {
		if p.UserID == userID {
			out = append(out, clonePost(p))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) PostsVotedBy(ctx context.Context, userID string, value int) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Post, 0)
	for postID, v := range s.postVotes[userID] {
		if v != value {
			continue
		}
		if p, ok := s.posts[postID]; ok {
			out = append(out, clonePost(p))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) PostsSavedBy(ctx context.Context, userID string) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Post, 0)
	for postID := range s.saved[userID] {
		if p, ok := s.posts[postID]; ok {
			out = append(out, clonePost(p))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// === Comments ===

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return storage.ErrNotFound
	}
	if comment.ParentID != nil {
		if _, ok := s.comments[*comment.ParentID]; !ok {
			return storage.ErrNotFound
		}
	}

	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = s.Now().UTC()
	comment.UpdatedAt = comment.CreatedAt

	c := cloneComment(comment)
	s.comments[c.ID] = &c
	return nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := cloneComment(c)
	s.attachCommentUser(&copied)
	return &copied, nil
}

func (s *Store) CommentsByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID {
			copied := cloneComment(c)
			s.attachCommentUser(&copied)
			out = append(out, copied)
		}
	}
	sortCommentsNewestFirst(out)
	return out, nil
}

func (s *Store) CommentsByParent(ctx context.Context, parentID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			copied := cloneComment(c)
			s.attachCommentUser(&copied)
			out = append(out, copied)
		}
	}
	sortCommentsNewestFirst(out)
	return out, nil
}

func (s *Store) RecentComments(ctx context.Context, limit int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Comment, 0, len(s.comments))
	for _, c := range s.comments {
		copied := cloneComment(c)
		s.attachCommentUser(&copied)
		out = append(out, copied)
	}
	sortCommentsNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateCommentText(ctx context.Context, id, text string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c.Text = text
	c.UpdatedAt = s.Now().UTC()

	copied := cloneComment(c)
	s.attachCommentUser(&copied)
	return &copied, nil
}

func (s *Store) DeleteCommentTree(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return storage.ErrNotFound
	}
	s.deleteCommentRecursive(id)
	return nil
}

// deleteCommentRecursive removes descendants before the node itself.
// Callers hold the write lock.
func (s *Store) deleteCommentRecursive(id string) {
	for cid, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == id {
			s.deleteCommentRecursive(cid)
		}
	}
	delete(s.comments, id)
	for _, votes := range s.commentVotes {
		delete(votes, id)
	}
}

func (s *Store) CountCommentsByPost(ctx context.Context, postIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countComments(postIDs), nil
}

// countComments assumes the caller holds at least the read lock.
func (s *Store) countComments(postIDs []string) map[string]int {
	wanted := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		wanted[id] = true
	}
	counts := make(map[string]int, len(postIDs))
	for _, c := range s.comments {
		if wanted[c.PostID] {
			counts[c.PostID]++
		}
	}
	return counts
}

// === Votes and saves ===

func (s *Store) SetPostVote(ctx context.Context, userID, postID string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}

	votes := s.postVotes[userID]
	if votes == nil {
		votes = make(map[string]int)
		s.postVotes[userID] = votes
	}

	old := votes[postID]
	up, down := models.VoteDeltas(old, value)
	p.Upvotes += up
	p.Downvotes += down

	if value == 0 {
		delete(votes, postID)
	} else {
		votes[postID] = value
	}
	return nil
}

func (s *Store) SetCommentVote(ctx context.Context, userID, commentID string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return storage.ErrNotFound
	}

	votes := s.commentVotes[userID]
	if votes == nil {
		votes = make(map[string]int)
		s.commentVotes[userID] = votes
	}

	old := votes[commentID]
	up, down := models.VoteDeltas(old, value)
	c.Upvotes += up
	c.Downvotes += down

	if value == 0 {
		delete(votes, commentID)
	} else {
		votes[commentID] = value
	}
	return nil
}

func (s *Store) ToggleSavedPost(ctx context.Context, userID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return false, storage.ErrNotFound
	}

	savedSet := s.saved[userID]
	if savedSet == nil {
		savedSet = make(map[string]bool)
		s.saved[userID] = savedSet
	}

	if savedSet[postID] {
		delete(savedSet, postID)
		return false, nil
	}
	savedSet[postID] = true
	return true, nil
}

// === helpers ===

func (s *Store) attachPostUser(p *models.Post) {
	if u, ok := s.users[p.UserID]; ok {
		copied := *u
		p.User = &copied
	}
}

func (s *Store) attachCommentUser(c *models.Comment) {
	if c.UserID == nil {
		return
	}
	if u, ok := s.users[*c.UserID]; ok {
		copied := *u
		c.User = &copied
	}
}

func clonePost(p *models.Post) models.Post {
	copied := *p
	copied.Tags = append([]string(nil), p.Tags...)
	copied.User = nil
	return copied
}

func cloneComment(c *models.Comment) models.Comment {
	copied := *c
	copied.User = nil
	return copied
}

func sortNewestFirst(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

func sortCommentsNewestFirst(cs []models.Comment) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}
