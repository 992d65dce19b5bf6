package constants

// Pagination Query Parameters
const (
	QueryParamSkip  = "skip"
	QueryParamLimit = "limit"
)

// Default Pagination Values (as strings for query parsing)
const (
	DefaultSkip  = "0"
	DefaultLimit = "20"
)

// Pagination Limits
const (
	MinSkip  = 0
	MinLimit = 1
	MaxLimit = 100
)
