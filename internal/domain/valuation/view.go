package valuation

// ViewState is the user-controlled side of a view. It lives independently of
// any Batch and survives refreshes.
type ViewState struct {
	Criteria  Criteria
	SortKey   SortKey
	Direction Direction
	Page      int
	PageSize  int
}

func DefaultViewState() ViewState {
	return ViewState{
		SortKey:   DefaultSortKey,
		Direction: DefaultDirection,
		Page:      1,
		PageSize:  DefaultPageSize,
	}
}

type View struct {
	Page    Page
	Window  []int
	Summary Summary
}

// BuildView runs filter, then summary on the filtered set and sort plus
// pagination on the ordered set.
func BuildView(records []PlayerRecord, state ViewState) View {
	filtered := Filter(records, state.Criteria)
	sorted := Sort(filtered, state.SortKey, state.Direction)
	page := Paginate(sorted, state.PageSize, state.Page)

	return View{
		Page:    page,
		Window:  PageWindow(page.PageNumber, page.TotalPages, DefaultWindowSize),
		Summary: Summarize(filtered),
	}
}
