package appstore

import (
	"sort"

	"github.com/storelens/reviewgateway/internal/domain"
)

// fingerprintPrefix is how many runes of review content take part in the
// duplicate check.
const fingerprintPrefix = 50

type fingerprint struct {
	content string
	author  string
	updated string
}

func fingerprintOf(e feedEntry) fingerprint {
	content := []rune(e.Content)
	if len(content) > fingerprintPrefix {
		content = content[:fingerprintPrefix]
	}
	return fingerprint{content: string(content), author: e.Author, updated: e.Updated}
}

// mergeFeeds unions feeds in the given order, keeping the first occurrence of
// each fingerprint, then orders the union newest first. Entries whose
// timestamp cannot be parsed go last; ties keep their merge order.
func mergeFeeds(feeds [][]feedEntry) []feedEntry {
	seen := make(map[fingerprint]struct{})
	var merged []feedEntry
	for _, feed := range feeds {
		for _, e := range feed {
			fp := fingerprintOf(e)
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			merged = append(merged, e)
		}
	}

	type keyed struct {
		entry feedEntry
		unix  int64
		ok    bool
	}
	items := make([]keyed, len(merged))
	for i, e := range merged {
		t, ok := domain.Review{Date: e.Updated}.ParsedDate()
		items[i] = keyed{entry: e, unix: t.UnixNano(), ok: ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.unix > b.unix
	})

	out := make([]feedEntry, len(items))
	for i, it := range items {
		out[i] = it.entry
	}
	return out
}

// toReviews truncates entries to limit and assigns synthetic ids by position.
func toReviews(entries []feedEntry, appID string, limit int) []domain.Review {
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	reviews := make([]domain.Review, len(entries))
	for i, e := range entries {
		reviews[i] = domain.Review{
			ID:           domain.ReviewID(appID, Name, i),
			Rating:       e.Rating,
			Title:        e.Title,
			Content:      e.Content,
			Author:       e.Author,
			Date:         e.Updated,
			HelpfulVotes: e.HelpfulVotes,
			AppID:        appID,
		}
	}
	return reviews
}
