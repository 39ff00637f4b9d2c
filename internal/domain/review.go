package domain

import (
	"strconv"
	"time"
)

// Platform is the fixed platform tag of every app served by the gateway.
const Platform = "ios"

// Defaults substituted when an upstream omits a field.
const (
	UnknownAppName  = "Unknown App"
	AnonymousAuthor = "Anonymous"
)

// AppMetadata describes one app as reported by an upstream source.
// It is rebuilt on every fetch.
type AppMetadata struct {
	AppID       string       `json:"app_id"`
	Name        string       `json:"name"`
	Rating      float64      `json:"rating"`
	RatingCount int          `json:"rating_count"`
	ReviewCount int          `json:"review_count"`
	URL         string       `json:"url"`
	Platform    string       `json:"platform"`
	LastUpdated string       `json:"last_updated"`
	Screenshots *Screenshots `json:"screenshots,omitempty"`
}

// Screenshots groups screenshot URLs by device family.
type Screenshots struct {
	IPhone  []string `json:"iphone"`
	IPad    []string `json:"ipad"`
	AppleTV []string `json:"appletv"`
}

// StoreURL is the canonical storefront URL for an app identifier.
func StoreURL(appID string) string {
	return "https://apps.apple.com/app/id" + appID
}

// Review is a single user review normalized from any upstream.
type Review struct {
	ID           string `json:"id"`
	Rating       int    `json:"rating"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Author       string `json:"author"`
	Date         string `json:"date"`
	HelpfulVotes int    `json:"helpful_votes"`
	AppID        string `json:"app_id"`
}

// ReviewID builds the synthetic review identifier <app_id>_<source>_<ordinal>.
func ReviewID(appID, source string, ordinal int) string {
	return appID + "_" + source + "_" + strconv.Itoa(ordinal)
}

// ParsedDate returns the review date as a time, and false when the upstream
// string is not a recognizable timestamp.
func (r Review) ParsedDate() (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, r.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}
