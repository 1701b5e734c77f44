package model

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is an offset/limit window over a listing.
type Page struct {
	Number int
	Limit  int
}

// NewPage normalises raw page and limit values: anything below one falls
// back to the defaults and the limit is capped at MaxPageLimit.
func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	return Page{Number: number, Limit: limit}
}

// Skip is the number of records before the page.
func (p Page) Skip() int {
	return (p.Number - 1) * p.Limit
}

// Metadata describes a page of a listing.
type Metadata struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

// NewMetadata builds the metadata of page p over total records. TotalPages
// is ceil(total/limit).
func NewMetadata(p Page, total int64) Metadata {
	limit := int64(p.Limit)

	return Metadata{
		Total:      total,
		Page:       p.Number,
		Limit:      p.Limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

// ArticlePage is one page of a user's articles.
type ArticlePage struct {
	Articles []*Article `json:"articles"`
	Metadata Metadata   `json:"metadata"`
}
