package domain

// ReviewsRequest is a single-app aggregation request, decoded from the query
// string (GET) or JSON body (POST). Limit stays a float so that non-integer
// input can be rejected by validation rather than silently truncated.
type ReviewsRequest struct {
	AppID           string   `json:"app_id" validate:"required,app_id"`
	Limit           *float64 `json:"limit,omitempty"`
	IncludeMetadata bool     `json:"include_metadata"`
	Country         string   `json:"country,omitempty" validate:"omitempty,len=2,alpha"`
}

// BatchReviewsRequest aggregates reviews for several apps in one call.
type BatchReviewsRequest struct {
	AppIDs          []string `json:"app_ids" validate:"required,min=1,max=20,dive,app_id"`
	Limit           *float64 `json:"limit,omitempty"`
	IncludeMetadata bool     `json:"include_metadata"`
	Country         string   `json:"country,omitempty" validate:"omitempty,len=2,alpha"`
}

// Query is a sanitized single-app request ready for the aggregator.
type Query struct {
	AppID           string
	Limit           int
	IncludeMetadata bool
	Country         string
}

// BatchQuery is a sanitized multi-app request ready for the aggregator.
type BatchQuery struct {
	AppIDs          []string
	Limit           int
	IncludeMetadata bool
	Country         string
}
