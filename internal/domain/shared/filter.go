package shared

// Filter carries pagination, ordering, and field filters for listing
// queries. Repositories whitelist both the order-by column and the filter
// keys they accept.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Filters  map[string]interface{}
}

// Offset converts page and page size into a row offset.
func (f Filter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.PageSize
}
