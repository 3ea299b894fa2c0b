package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageboard/internal/models"
)

func post(tags ...string) *models.Post {
	return &models.Post{ID: "p1", Tags: tags, CreatedAt: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}
}

func TestParseFilter(t *testing.T) {
	values := url.Values{}
	values.Set("tags", "cat, landscape")
	values.Set("excludedTags", "blurry")
	values.Set("matchAll", "true")
	values.Set("specialTags", `{"danger":"sfw","author":"jane"}`)
	values.Set("dateFrom", "2025-01-01")
	values.Set("dateTo", "2025-03-01T12:00:00Z")
	values.Set("excludeId", "abc")

	f := ParseFilter(values)

	assert.Equal(t, []string{"cat", "landscape"}, f.Tags)
	assert.Equal(t, []string{"blurry"}, f.ExcludedTags)
	assert.True(t, f.MatchAll)
	assert.False(t, f.MatchExcludedAll)
	assert.Equal(t, map[string]string{"danger": "sfw", "author": "jane"}, f.Special)
	assert.Equal(t, "abc", f.ExcludeID)
	require.NotNil(t, f.DateFrom)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *f.DateFrom)
	require.NotNil(t, f.DateTo)
}

func TestParseFilter_MalformedSpecialTagsIgnored(t *testing.T) {
	values := url.Values{}
	values.Set("specialTags", `{not json`)
	values.Set("tags", "cat")

	f := ParseFilter(values)

	assert.Nil(t, f.Special)
	assert.Equal(t, []string{"cat"}, f.Tags)
}

func TestMatches_IncludeTags(t *testing.T) {
	p := post("a", "b")

	any := Filter{Tags: []string{"a", "c"}}
	assert.True(t, any.Matches(p))

	all := Filter{Tags: []string{"a", "c"}, MatchAll: true}
	assert.False(t, all.Matches(p))

	allPresent := Filter{Tags: []string{"a", "b"}, MatchAll: true}
	assert.True(t, allPresent.Matches(p))
}

func TestMatches_ExcludeTags(t *testing.T) {
	p := post("x", "y")

	// ALL-exclude drops the post only when it carries every excluded tag;
	// "z" is missing here, so the post survives.
	weak := Filter{ExcludedTags: []string{"x", "z"}, MatchExcludedAll: true}
	assert.True(t, weak.Matches(p))

	// ANY-exclude drops the post because "x" is present.
	strong := Filter{ExcludedTags: []string{"x", "z"}}
	assert.False(t, strong.Matches(p))

	// Both excluded tags present: ALL-exclude now drops it too.
	both := Filter{ExcludedTags: []string{"x", "y"}, MatchExcludedAll: true}
	assert.False(t, both.Matches(p))
}

func TestMatches_DangerSFW(t *testing.T) {
	sfw := Filter{Special: map[string]string{"danger": "sfw"}}

	// Untagged posts are safe by default.
	assert.True(t, sfw.Matches(post("cat")))
	// Explicitly safe.
	assert.True(t, sfw.Matches(post("danger:sfw")))
	// Explicitly unsafe.
	assert.False(t, sfw.Matches(post("danger:nsfw")))
	// Carrying both counts as safe.
	assert.True(t, sfw.Matches(post("danger:nsfw", "danger:sfw")))
}

func TestMatches_OtherSpecialTags(t *testing.T) {
	f := Filter{Special: map[string]string{"author": "jane"}}

	assert.True(t, f.Matches(post("author:jane", "cat")))
	assert.False(t, f.Matches(post("author:john", "cat")))
	assert.False(t, f.Matches(post("cat")))
}

func TestMatches_DateRange(t *testing.T) {
	p := post("cat") // created 2025-03-15

	from := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	// Bounds are inclusive.
	assert.True(t, Filter{DateFrom: &from, DateTo: &to}.Matches(p))

	later := from.Add(time.Second)
	assert.False(t, Filter{DateFrom: &later}.Matches(p))

	earlier := to.Add(-time.Second)
	assert.False(t, Filter{DateTo: &earlier}.Matches(p))
}

func TestMatches_ExcludeID(t *testing.T) {
	p := post("cat")

	assert.False(t, Filter{ExcludeID: "p1"}.Matches(p))
	assert.True(t, Filter{ExcludeID: "other"}.Matches(p))
}

func TestParsePage(t *testing.T) {
	values := url.Values{}
	assert.Equal(t, Page{Page: 1, Limit: 40}, ParsePage(values))

	values.Set("page", "3")
	values.Set("limit", "40")
	p := ParsePage(values)
	assert.Equal(t, 80, p.Skip())

	values.Set("page", "-2")
	values.Set("limit", "oops")
	assert.Equal(t, Page{Page: 1, Limit: 40}, ParsePage(values))
}

func TestPageSlice(t *testing.T) {
	p := Page{Page: 3, Limit: 40}
	start, end := p.Slice(95)
	assert.Equal(t, 80, start)
	assert.Equal(t, 95, end)

	start, end = p.Slice(50)
	assert.Equal(t, 50, start)
	assert.Equal(t, 50, end)
}

func TestParseSort(t *testing.T) {
	values := url.Values{}
	s := ParseSort(values)
	assert.Empty(t, s.By)
	assert.Equal(t, OrderDesc, s.Order)

	values.Set("sortBy", "votes")
	values.Set("sortOrder", "asc")
	s = ParseSort(values)
	assert.Equal(t, SortByVotes, s.By)
	assert.True(t, s.Ascending())

	values.Set("sortBy", "bogus")
	assert.Empty(t, ParseSort(values).By)
}
