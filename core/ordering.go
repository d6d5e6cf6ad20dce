package core

import "strings"

// Ordering is the sort state of a collection view.
type Ordering struct {
	Field     string
	Ascending bool
}

// Toggle returns the ordering after the user picked `field`:
// the same field flips the direction, a different one starts ascending.
func (ord Ordering) Toggle(field string) Ordering {
	if field == ord.Field {
		return Ordering{Field: field, Ascending: !ord.Ascending}
	}
	return Ordering{Field: field, Ascending: true}
}

func (ord Ordering) String() string {
	if ord.Field == "" {
		return ""
	}
	if ord.Ascending {
		return ord.Field
	}
	return "-" + ord.Field
}

// ParseOrdering reads "field" (ascending) or "-field" (descending).
func ParseOrdering(s string) Ordering {
	field := strings.TrimSpace(s)
	descending := strings.HasPrefix(field, "-")
	if descending {
		field = field[1:] // drop "-"
	}
	return Ordering{Field: field, Ascending: !descending}
}
