package shared

// Filter carries the pagination, ordering, and search options common to
// repository list queries. Aggregate-specific filters embed it and add
// their own fields. Zero values mean "no constraint": repositories skip
// pagination when Page or PageSize is zero and fall back to their default
// sort column when OrderBy is empty.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}
