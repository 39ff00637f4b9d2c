package domain

// SortOrder names one upstream review feed.
type SortOrder string

const (
	SortMostRecent    SortOrder = "mostrecent"
	SortMostHelpful   SortOrder = "mosthelpful"
	SortMostFavorable SortOrder = "mostfavorable"
	SortMostCritical  SortOrder = "mostcritical"
)

// SortOrders lists every feed in merge order.
var SortOrders = []SortOrder{SortMostRecent, SortMostHelpful, SortMostFavorable, SortMostCritical}

// Strategy selects how the App Store client collects reviews.
type Strategy string

const (
	// StrategySingleSort reads only the most recent feed.
	StrategySingleSort Strategy = "single_sort"
	// StrategyMultiSort merges all four feeds and drops duplicates.
	StrategyMultiSort Strategy = "multi_sort"
)

// ParseStrategy returns the strategy named s, defaulting to multi-sort.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == StrategySingleSort {
		return StrategySingleSort
	}
	return StrategyMultiSort
}
