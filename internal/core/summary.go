package core

// CategoryTotal is the summed price of one category within a month.
type CategoryTotal struct {
	Category string
	Total    Money
}

// MonthlySummary bundles one calendar month of a user's entries with the
// per-category price totals over exactly those entries. Categories with no
// matching entries are absent.
type MonthlySummary struct {
	Year       int
	Month      int // 1-12
	Entries    []Entry
	ByCategory []CategoryTotal
}

// Total returns the sum over all categories.
func (s MonthlySummary) Total() Money {
	var cents int64
	for _, ct := range s.ByCategory {
		cents += ct.Total.Cents
	}
	return Money{Cents: cents}
}
