package valuation

const (
	DefaultPageSize   = 10
	DefaultWindowSize = 5
)

type Page struct {
	Items      []PlayerRecord
	PageNumber int
	PageSize   int
	TotalPages int
	TotalItems int
}

// Paginate slices records into 1-indexed pages. A non-positive pageSize uses
// DefaultPageSize and a pageNumber below 1 is treated as 1. Pages past the end
// come back empty with valid metadata.
func Paginate(records []PlayerRecord, pageSize, pageNumber int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageNumber < 1 {
		pageNumber = 1
	}

	total := len(records)
	page := Page{
		Items:      []PlayerRecord{},
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalPages: total / pageSize,
		TotalItems: total,
	}
	if total%pageSize != 0 {
		page.TotalPages++
	}
	if pageNumber > page.TotalPages {
		return page
	}

	start := (pageNumber - 1) * pageSize
	end := start + min(pageSize, total-start)
	page.Items = append(page.Items, records[start:end]...)
	return page
}

// PageWindow returns at most windowSize page numbers around pageNumber,
// clamped to [1, totalPages].
func PageWindow(pageNumber, totalPages, windowSize int) []int {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if totalPages <= 0 {
		return []int{}
	}

	count := min(windowSize, totalPages)
	half := windowSize / 2

	var start int
	switch {
	case totalPages <= windowSize:
		start = 1
	case pageNumber <= half+1:
		start = 1
	case pageNumber >= totalPages-half:
		start = totalPages - windowSize + 1
	default:
		start = pageNumber - half
	}

	out := make([]int, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, start+i)
	}
	return out
}
