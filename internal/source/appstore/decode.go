package appstore

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/storelens/reviewgateway/internal/domain"
	"github.com/storelens/reviewgateway/pkg/httputil"
)

// feedEntry is one review decoded from the customer reviews RSS feed. The
// ordinal-based id is assigned once the final order is known.
type feedEntry struct {
	Rating       int
	Title        string
	Content      string
	Author       string
	Updated      string
	HelpfulVotes int
}

func malformed(reason string) *domain.UpstreamError {
	return &domain.UpstreamError{Source: Name, Reason: reason}
}

// decodeLookup maps a lookup response into AppMetadata.
func decodeLookup(body []byte, appID string, now time.Time) (*domain.AppMetadata, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed("lookup response is not valid JSON")
	}
	results := gjson.GetBytes(body, "results")
	if !results.IsArray() {
		return nil, malformed("lookup response has no results array")
	}
	items := results.Array()
	if len(items) == 0 {
		return nil, malformed("app not found")
	}
	app := items[0]

	name := app.Get("trackName").String()
	if name == "" {
		name = domain.UnknownAppName
	}
	ratingCount := nonNegative(app.Get("userRatingCount").Int())
	reviewCount := ratingCount
	if v := app.Get("userRatingCountForCurrentVersion"); v.Exists() {
		reviewCount = nonNegative(v.Int())
	}

	return &domain.AppMetadata{
		AppID:       appID,
		Name:        name,
		Rating:      app.Get("averageUserRating").Float(),
		RatingCount: ratingCount,
		ReviewCount: reviewCount,
		URL:         domain.StoreURL(appID),
		Platform:    domain.Platform,
		LastUpdated: now.UTC().Format(httputil.ISO8601),
		Screenshots: &domain.Screenshots{
			IPhone:  stringList(app.Get("screenshotUrls")),
			IPad:    stringList(app.Get("ipadScreenshotUrls")),
			AppleTV: stringList(app.Get("appletvScreenshotUrls")),
		},
	}, nil
}

// decodeFeed maps a customer reviews feed into entries. The first feed entry
// describes the app itself and is skipped. A feed holding a single entry
// encodes it as an object rather than an array.
func decodeFeed(body []byte) ([]feedEntry, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed("reviews feed is not valid JSON")
	}
	feed := gjson.GetBytes(body, "feed")
	if !feed.IsObject() {
		return nil, malformed("reviews feed has no feed object")
	}
	entry := feed.Get("entry")
	switch {
	case !entry.Exists():
		return nil, malformed("reviews feed has no entry")
	case entry.IsObject():
		return []feedEntry{}, nil
	case !entry.IsArray():
		return nil, malformed("reviews feed entry is neither object nor array")
	}

	raw := entry.Array()
	if len(raw) <= 1 {
		return []feedEntry{}, nil
	}
	out := make([]feedEntry, 0, len(raw)-1)
	for _, e := range raw[1:] {
		if !e.IsObject() {
			continue
		}
		author := e.Get("author.name.label").String()
		if author == "" {
			author = domain.AnonymousAuthor
		}
		out = append(out, feedEntry{
			Rating:       starRating(e.Get("im:rating.label")),
			Title:        e.Get("title.label").String(),
			Content:      e.Get("content.label").String(),
			Author:       author,
			Updated:      e.Get("updated.label").String(),
			HelpfulVotes: nonNegative(e.Get("im:voteSum.label").Int()),
		})
	}
	return out, nil
}

func starRating(v gjson.Result) int {
	r := v.Int()
	if r < 1 || r > 5 {
		return 0
	}
	return int(r)
}

func nonNegative(n int64) int {
	if n < 0 {
		return 0
	}
	return int(n)
}

func stringList(v gjson.Result) []string {
	out := []string{}
	if !v.IsArray() {
		return out
	}
	for _, s := range v.Array() {
		if str := s.String(); str != "" {
			out = append(out, str)
		}
	}
	return out
}
