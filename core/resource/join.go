package resource

import (
	"regexp"
	"strings"
)

// Filter keeps the records for which it returns true.
type Filter[T any] func(T) bool

// Where adapts a plain predicate.
func Where[T any](pred func(T) bool) Filter[T] { return pred }

var nonDigits = regexp.MustCompile(`\D+`)

// MinDigits matches records whose identity number contains the digits of query,
// once the query carries at least min digits. Shorter queries match everything.
func MinDigits[T any](query string, min int, get func(T) string) Filter[T] {
	digits := nonDigits.ReplaceAllString(query, "")
	if len(digits) < min {
		return func(T) bool { return true }
	}
	return func(rec T) bool {
		return strings.Contains(get(rec), digits)
	}
}

// Contains is a case-insensitive substring search over the given text fields.
// An empty query matches everything.
func Contains[T any](query string, gets ...func(T) string) Filter[T] {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return func(T) bool { return true }
	}
	return func(rec T) bool {
		for _, get := range gets {
			if strings.Contains(strings.ToLower(get(rec)), q) {
				return true
			}
		}
		return false
	}
}

func apply[T any](items []T, filters []Filter[T]) []T {
	if len(filters) == 0 {
		return items
	}
	out := items[:0:0]
outer:
	for _, rec := range items {
		for _, f := range filters {
			if f != nil && !f(rec) {
				continue outer
			}
		}
		out = append(out, rec)
	}
	return out
}

// Index maps id -> record over a snapshot, for render-time joins.
func Index[T Record](items []T) map[int]T {
	idx := make(map[int]T, len(items))
	for _, rec := range items {
		idx[rec.Identity()] = rec
	}
	return idx
}

// Lookup finds the record with the given id.
func Lookup[T Record](items []T, id int) (T, bool) {
	for _, rec := range items {
		if rec.Identity() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Label resolves a reference to a display label, or fallback when it dangles.
func Label[T Record](idx map[int]T, id int, label func(T) string, fallback string) string {
	if rec, ok := idx[id]; ok {
		return label(rec)
	}
	return fallback
}
