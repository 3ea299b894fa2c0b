package storage

import (
	"sort"
	"time"

	"imageboard/internal/models"
	"imageboard/internal/query"
	"imageboard/internal/ranking"
)

// RankPage scores the filtered candidates, orders them best-first and
// slices out the requested page. Both store implementations share it so
// the ranking path behaves identically regardless of backend.
func RankPage(posts []models.Post, counts map[string]int, mode ranking.Mode, page query.Page, now time.Time) *PostPage {
	scores := make(map[string]float64, len(posts))
	for i := range posts {
		posts[i].CommentsCount = counts[posts[i].ID]
		scores[posts[i].ID] = ranking.Score(
			posts[i].Upvotes, posts[i].Downvotes, posts[i].CommentsCount,
			posts[i].CreatedAt, mode, now,
		)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return scores[posts[i].ID] > scores[posts[j].ID]
	})

	total := len(posts)
	start, end := page.Slice(total)

	return &PostPage{
		Posts:   posts[start:end],
		Page:    page.Page,
		Limit:   page.Limit,
		Total:   total,
		HasMore: page.Skip()+page.Limit < total,
	}
}

// SortByNet orders posts by net score. The votes sort delegated to the
// store uses upvotes and downvotes as two separate keys, which is not
// net-score order; this pass restores a total order over the page.
func SortByNet(posts []models.Post, ascending bool) {
	sort.SliceStable(posts, func(i, j int) bool {
		if ascending {
			return posts[i].NetScore() < posts[j].NetScore()
		}
		return posts[i].NetScore() > posts[j].NetScore()
	})
}
