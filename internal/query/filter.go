// Package query translates the listing endpoint's flat query parameters
// into a structured filter plus sort and page settings. The filter is a
// pure predicate description; stores decide how to evaluate it.
package query

import (
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"time"

	"imageboard/internal/models"
)

// Special tag handling: tags of the form "prefix:value". Posts with no
// danger tag at all count as safe.
const (
	DangerPrefix = "danger"
	TagSFW       = "danger:sfw"
	TagNSFW      = "danger:nsfw"
)

type Filter struct {
	Tags         []string
	ExcludedTags []string

	// MatchAll requires every included tag; otherwise any one suffices.
	MatchAll bool

	// MatchExcludedAll drops a post only when it carries every excluded
	// tag. Without it, any single excluded tag drops the post.
	MatchExcludedAll bool

	// Special maps tag prefix to required value, e.g. "danger" -> "sfw".
	Special map[string]string

	// Inclusive creation-time bounds, each independently optional.
	DateFrom *time.Time
	DateTo   *time.Time

	// ExcludeID omits the post being viewed from "similar" listings.
	ExcludeID string
}

// ParseFilter builds a Filter from listing query parameters. Malformed
// specialTags JSON is logged and ignored; the caller cannot distinguish
// it from no special filter at all.
func ParseFilter(values url.Values) Filter {
	f := Filter{
		Tags:             splitTags(values.Get("tags")),
		ExcludedTags:     splitTags(values.Get("excludedTags")),
		MatchAll:         values.Get("matchAll") == "true",
		MatchExcludedAll: values.Get("matchExcludedAll") == "true",
		ExcludeID:        values.Get("excludeId"),
	}

	if raw := values.Get("specialTags"); raw != "" {
		var special map[string]string
		if err := json.Unmarshal([]byte(raw), &special); err != nil {
			log.Printf("ignoring malformed specialTags %q: %v", raw, err)
		} else {
			f.Special = special
		}
	}

	f.DateFrom = parseDate(values.Get("dateFrom"))
	f.DateTo = parseDate(values.Get("dateTo"))

	return f
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	log.Printf("ignoring unparseable date %q", raw)
	return nil
}

// Matches reports whether the post satisfies every filter condition.
func (f Filter) Matches(p *models.Post) bool {
	if f.ExcludeID != "" && p.ID == f.ExcludeID {
		return false
	}

	if len(f.Tags) > 0 {
		if f.MatchAll {
			if !containsAll(p.Tags, f.Tags) {
				return false
			}
		} else if !containsAny(p.Tags, f.Tags) {
			return false
		}
	}

	if len(f.ExcludedTags) > 0 {
		if f.MatchExcludedAll {
			// Weak exclusion: the post must carry every excluded tag
			// simultaneously to be dropped.
			if containsAll(p.Tags, f.ExcludedTags) {
				return false
			}
		} else if containsAny(p.Tags, f.ExcludedTags) {
			return false
		}
	}

	for prefix, value := range f.Special {
		if prefix == DangerPrefix && value == "sfw" {
			if contains(p.Tags, TagNSFW) && !contains(p.Tags, TagSFW) {
				return false
			}
			continue
		}
		if !contains(p.Tags, prefix+":"+value) {
			return false
		}
	}

	if f.DateFrom != nil && p.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && p.CreatedAt.After(*f.DateTo) {
		return false
	}

	return true
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsAll(haystack, needles []string) bool {
	for _, n := range needles {
		if !contains(haystack, n) {
			return false
		}
	}
	return true
}

func containsAny(haystack, needles []string) bool {
	for _, n := range needles {
		if contains(haystack, n) {
			return true
		}
	}
	return false
}
