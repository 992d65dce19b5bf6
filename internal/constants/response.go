package constants

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Standard Response Field Keys
const (
	ResponseFieldMessage = "message"
	ResponseFieldDetails = "details"
	ResponseFieldDetail  = "detail"
	ResponseFieldUser    = "user"
)

// PaginationParams holds offset based paging parsed from the query string.
type PaginationParams struct {
	Skip  int
	Limit int
}

// ParsePaginationParams parses skip/limit, clamping to sane bounds.
func ParsePaginationParams(c *gin.Context) PaginationParams {
	skip, err := strconv.Atoi(c.DefaultQuery(QueryParamSkip, DefaultSkip))
	if err != nil || skip < MinSkip {
		skip = MinSkip
	}

	limit, err := strconv.Atoi(c.DefaultQuery(QueryParamLimit, DefaultLimit))
	if err != nil {
		limit, _ = strconv.Atoi(DefaultLimit)
	}
	if limit < MinLimit {
		limit = MinLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return PaginationParams{
		Skip:  skip,
		Limit: limit,
	}
}

// Response Format Functions
func BuildErrorResponse(message string, details any) map[string]any {
	response := map[string]any{
		ResponseFieldMessage: message,
	}

	if details != nil {
		response[ResponseFieldDetails] = details
	}

	return response
}

func BuildSuccessResponse(message string) map[string]any {
	return map[string]any{
		ResponseFieldMessage: message,
	}
}

// BuildUserCreatedResponse mirrors the signup payload: the user plus a detail line.
func BuildUserCreatedResponse(user any, detail string) map[string]any {
	return map[string]any{
		ResponseFieldUser:   user,
		ResponseFieldDetail: detail,
	}
}
