package validation

import (
	"math"
	"strings"

	"github.com/storelens/reviewgateway/internal/domain"
)

// Limits carries the configured review limits applied during sanitization.
type Limits struct {
	Default int
	Max     int
}

// SanitizeIdentifier trims surrounding whitespace and nothing else.
func SanitizeIdentifier(id string) string {
	return strings.TrimSpace(id)
}

// SanitizeLimit floors n toward zero and clamps it into [1, max].
func SanitizeLimit(n float64, max int) int {
	if math.IsNaN(n) {
		return 1
	}
	n = math.Trunc(n)
	if n < 1 {
		return 1
	}
	if n > float64(max) {
		return max
	}
	return int(n)
}

// SanitizeCountry trims and lowercases c, falling back to DefaultCountry.
func SanitizeCountry(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return DefaultCountry
	}
	return c
}

func (l Limits) resolve(limit *float64) int {
	if limit == nil {
		return SanitizeLimit(float64(l.Default), l.Max)
	}
	return SanitizeLimit(*limit, l.Max)
}

// SanitizeSingle turns a validated request into an aggregator query.
func SanitizeSingle(req domain.ReviewsRequest, limits Limits) domain.Query {
	return domain.Query{
		AppID:           SanitizeIdentifier(req.AppID),
		Limit:           limits.resolve(req.Limit),
		IncludeMetadata: req.IncludeMetadata,
		Country:         SanitizeCountry(req.Country),
	}
}

// SanitizeBatch turns a validated batch request into an aggregator query.
func SanitizeBatch(req domain.BatchReviewsRequest, limits Limits) domain.BatchQuery {
	ids := make([]string, len(req.AppIDs))
	for i, id := range req.AppIDs {
		ids[i] = SanitizeIdentifier(id)
	}
	return domain.BatchQuery{
		AppIDs:          ids,
		Limit:           limits.resolve(req.Limit),
		IncludeMetadata: req.IncludeMetadata,
		Country:         SanitizeCountry(req.Country),
	}
}
