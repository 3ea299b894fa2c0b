package comments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageboard/internal/models"
)

func comment(id string, parent *string, createdAt time.Time) models.Comment {
	return models.Comment{ID: id, ParentID: parent, CreatedAt: createdAt}
}

func strPtr(s string) *string { return &s }

func TestBuildTree_Nesting(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	flat := []models.Comment{
		comment("1", nil, base),
		comment("2", strPtr("1"), base.Add(1*time.Minute)),
		comment("3", strPtr("1"), base.Add(2*time.Minute)),
		comment("4", strPtr("2"), base.Add(3*time.Minute)),
	}

	roots := BuildTree(flat)

	require.Len(t, roots, 1)
	assert.Equal(t, "1", roots[0].ID)

	require.Len(t, roots[0].Replies, 2)
	// Newest-first at every level: 3 was written after 2.
	assert.Equal(t, "3", roots[0].Replies[0].ID)
	assert.Equal(t, "2", roots[0].Replies[1].ID)

	require.Len(t, roots[0].Replies[1].Replies, 1)
	assert.Equal(t, "4", roots[0].Replies[1].Replies[0].ID)
}

func TestBuildTree_MultipleRootsNewestFirst(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	flat := []models.Comment{
		comment("old", nil, base),
		comment("new", nil, base.Add(time.Hour)),
		comment("mid", nil, base.Add(time.Minute)),
	}

	roots := BuildTree(flat)

	require.Len(t, roots, 3)
	assert.Equal(t, "new", roots[0].ID)
	assert.Equal(t, "mid", roots[1].ID)
	assert.Equal(t, "old", roots[2].ID)
}

func TestBuildTree_OrphansDropped(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	flat := []models.Comment{
		comment("1", nil, base),
		comment("orphan", strPtr("gone"), base.Add(time.Minute)),
	}

	roots := BuildTree(flat)

	require.Len(t, roots, 1)
	assert.Equal(t, "1", roots[0].ID)
	assert.Empty(t, roots[0].Replies)
}

func TestBuildTree_Empty(t *testing.T) {
	assert.Empty(t, BuildTree(nil))
}
