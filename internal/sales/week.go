package sales

import (
	"time"

	"sales_dashboard/internal/format"
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WeekWindow returns the Monday-to-Monday window of the week containing ref,
// shifted by offset weeks. Midnight is taken in ref's location and Sunday
// belongs to the week before it.
func WeekWindow(ref time.Time, offset int) Window {
	day := int(ref.Weekday())
	diff := 1 - day
	if day == 0 {
		diff = -6
	}
	y, m, d := ref.Date()
	start := time.Date(y, m, d+diff+7*offset, 0, 0, 0, 0, ref.Location())
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Label renders the window as "DD.MM.YYYY – DD.MM.YYYY", last day inclusive.
func (w Window) Label() string {
	return format.Date(w.Start) + " – " + format.Date(w.End.AddDate(0, 0, -1))
}
