package domain

// AggregationResult is the response body for a single app.
type AggregationResult struct {
	AppID       string       `json:"app_id"`
	Metadata    *AppMetadata `json:"metadata,omitempty"`
	Reviews     []Review     `json:"reviews"`
	ReviewCount int          `json:"review_count"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// BatchResult is the response body for a multi-app request. Results follow
// the order of the requested identifiers.
type BatchResult struct {
	Results        []AggregationResult `json:"results"`
	TotalApps      int                 `json:"total_apps"`
	SuccessfulApps int                 `json:"successful_apps"`
	Timestamp      string              `json:"timestamp"`
}
