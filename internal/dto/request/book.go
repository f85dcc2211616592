package request

// BookListRequest carries catalog query parameters after boundary parsing.
type BookListRequest struct {
	Search    string
	Author    string
	Genre     string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
	SortBy    string `validate:"omitempty,oneof=title author price rating published_date"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`
	PaginatedRequest
}
