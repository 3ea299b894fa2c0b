// Package comments reshapes the flat parent-pointer comment list into the
// nested reply tree the client renders.
package comments

import (
	"sort"

	"imageboard/internal/models"
)

// Node is a comment with its resolved replies.
type Node struct {
	models.Comment
	Replies []*Node `json:"replies"`
}

// BuildTree buckets the flat list by parent reference and returns the
// root comments, every level sorted newest-first. Replies whose parent is
// missing from the list (already deleted) are dropped, not promoted.
func BuildTree(flat []models.Comment) []*Node {
	byID := make(map[string]*Node, len(flat))
	for i := range flat {
		byID[flat[i].ID] = &Node{Comment: flat[i], Replies: []*Node{}}
	}

	roots := []*Node{}
	for i := range flat {
		node := byID[flat[i].ID]
		if flat[i].ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := byID[*flat[i].ParentID]; ok {
			parent.Replies = append(parent.Replies, node)
		}
	}

	sortTree(roots)
	return roots
}

func sortTree(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].CreatedAt.After(nodes[j].CreatedAt)
	})
	for _, n := range nodes {
		if len(n.Replies) > 0 {
			sortTree(n.Replies)
		}
	}
}
