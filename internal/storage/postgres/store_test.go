package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"imageboard/internal/models"
	"imageboard/internal/query"
	"imageboard/internal/ranking"
	"imageboard/internal/storage"
)

// newTestStore spins up a throwaway postgres container. Skipped with
// -short or when no container runtime is available.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("imageboard_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
		&models.SavedPost{},
	))

	return New(db)
}

func seedUser(t *testing.T, s *Store, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedPost(t *testing.T, s *Store, userID string, tags ...string) *models.Post {
	t.Helper()
	p := &models.Post{UserID: userID, URL: "https://img.example/x", Tags: tags}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

func listIDs(t *testing.T, s *Store, f query.Filter) []string {
	t.Helper()
	page, err := s.ListPosts(context.Background(), storage.ListArgs{
		Filter: f,
		Page:   query.Page{Page: 1, Limit: 100},
		Mode:   ranking.ModeWeb,
	})
	require.NoError(t, err)
	ids := make([]string, len(page.Posts))
	for i := range page.Posts {
		ids[i] = page.Posts[i].ID
	}
	return ids
}

func TestFilterTranslation(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "author")

	ab := seedPost(t, s, u.ID, "a", "b")
	xy := seedPost(t, s, u.ID, "x", "y")
	nsfw := seedPost(t, s, u.ID, "cat", "danger:nsfw")
	taggedSafe := seedPost(t, s, u.ID, "cat", "danger:nsfw", "danger:sfw")

	// include ANY vs ALL
	ids := listIDs(t, s, query.Filter{Tags: []string{"a", "c"}})
	assert.Equal(t, []string{ab.ID}, ids)
	ids = listIDs(t, s, query.Filter{Tags: []string{"a", "c"}, MatchAll: true})
	assert.Empty(t, ids)

	// ALL-exclude only drops posts carrying every excluded tag
	ids = listIDs(t, s, query.Filter{Tags: []string{"x"}, ExcludedTags: []string{"x", "z"}, MatchExcludedAll: true})
	assert.Equal(t, []string{xy.ID}, ids)

	// ANY-exclude drops on a single match
	ids = listIDs(t, s, query.Filter{Tags: []string{"x"}, ExcludedTags: []string{"x", "z"}})
	assert.Empty(t, ids)

	// danger:sfw keeps untagged and explicitly safe posts
	ids = listIDs(t, s, query.Filter{Tags: []string{"cat", "a"}, Special: map[string]string{"danger": "sfw"}})
	assert.ElementsMatch(t, []string{ab.ID, taggedSafe.ID}, ids)

	// other special prefixes require exact presence
	ids = listIDs(t, s, query.Filter{Special: map[string]string{"danger": "nsfw"}})
	assert.ElementsMatch(t, []string{nsfw.ID, taggedSafe.ID}, ids)

	// excludeId
	ids = listIDs(t, s, query.Filter{Tags: []string{"a"}, ExcludeID: ab.ID})
	assert.Empty(t, ids)
}

func TestFilterDateRange(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "author")
	p := seedPost(t, s, u.ID, "cat")

	got, err := s.GetPostByID(context.Background(), p.ID)
	require.NoError(t, err)

	from := got.CreatedAt.Add(-time.Minute)
	to := got.CreatedAt.Add(time.Minute)
	ids := listIDs(t, s, query.Filter{DateFrom: &from, DateTo: &to})
	assert.Equal(t, []string{p.ID}, ids)

	past := got.CreatedAt.Add(-time.Hour)
	ids = listIDs(t, s, query.Filter{DateTo: &past})
	assert.Empty(t, ids)
}

func TestVoteUpsertAndCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "voter")
	p := seedPost(t, s, u.ID, "cat")

	require.NoError(t, s.SetPostVote(ctx, u.ID, p.ID, 1))
	require.NoError(t, s.SetPostVote(ctx, u.ID, p.ID, 1)) // idempotent

	got, err := s.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Upvotes)
	assert.Equal(t, 0, got.Downvotes)

	require.NoError(t, s.SetPostVote(ctx, u.ID, p.ID, -1)) // switch
	got, err = s.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)
	assert.Equal(t, 1, got.Downvotes)

	require.NoError(t, s.SetPostVote(ctx, u.ID, p.ID, 0)) // clear
	got, err = s.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)
	assert.Equal(t, 0, got.Downvotes)
}

func TestCommentCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "author")
	p := seedPost(t, s, u.ID, "cat")

	root := &models.Comment{PostID: p.ID, UserID: &u.ID, Text: "root"}
	require.NoError(t, s.CreateComment(ctx, root))
	child := &models.Comment{PostID: p.ID, UserID: &u.ID, ParentID: &root.ID, Text: "child"}
	require.NoError(t, s.CreateComment(ctx, child))
	grandchild := &models.Comment{PostID: p.ID, UserID: &u.ID, ParentID: &child.ID, Text: "deep"}
	require.NoError(t, s.CreateComment(ctx, grandchild))

	require.NoError(t, s.SetCommentVote(ctx, u.ID, child.ID, 1))

	require.NoError(t, s.DeleteCommentTree(ctx, root.ID))

	flat, err := s.CommentsByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, flat)
}

func TestSavedAndVotedListings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "collector")
	liked := seedPost(t, s, u.ID, "a")
	saved := seedPost(t, s, u.ID, "b")

	require.NoError(t, s.SetPostVote(ctx, u.ID, liked.ID, 1))
	ok, err := s.ToggleSavedPost(ctx, u.ID, saved.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	posts, err := s.PostsVotedBy(ctx, u.ID, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, liked.ID, posts[0].ID)

	posts, err = s.PostsSavedBy(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, saved.ID, posts[0].ID)
}
