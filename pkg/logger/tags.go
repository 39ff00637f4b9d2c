package logger

import (
	"context"
	"slices"
	"sync"
)

const tagsKey contextKey = "request_tags"

// RequestTags collects the app identifiers served by one request. Handlers
// tag derived contexts, so outer middleware read the holder after the
// handler returns rather than reading their own context.
type RequestTags struct {
	mu     sync.Mutex
	appIDs []string
}

// EnsureRequestTags returns the holder already in ctx, or installs a new one.
func EnsureRequestTags(ctx context.Context) (context.Context, *RequestTags) {
	if t := RequestTagsFromContext(ctx); t != nil {
		return ctx, t
	}
	t := &RequestTags{}
	return context.WithValue(ctx, tagsKey, t), t
}

// RequestTagsFromContext returns the holder installed by EnsureRequestTags, or nil.
func RequestTagsFromContext(ctx context.Context) *RequestTags {
	t, _ := ctx.Value(tagsKey).(*RequestTags)
	return t
}

func (t *RequestTags) addAppID(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.appIDs, id) {
		t.appIDs = append(t.appIDs, id)
	}
}

// AppIDs returns the identifiers in the order they were first tagged.
func (t *RequestTags) AppIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.appIDs)
}
