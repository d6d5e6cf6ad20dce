package resource

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/masomo-admin/core"
)

// Sortable lets a record expose derived sort keys (eg. a role name behind a role id).
type Sortable interface {
	SortValue(field string) (interface{}, bool)
}

// Sort returns a stably sorted copy of items. The input slice is never modified.
// An empty ordering field keeps the insertion order.
func Sort[T any](items []T, ord core.Ordering) ([]T, error) {
	sorted := make([]T, len(items))
	copy(sorted, items)
	if ord.Field == "" || len(sorted) < 2 {
		return sorted, nil
	}

	keys := make([]interface{}, len(sorted))
	for i := range sorted {
		val, err := FieldValue(sorted[i], ord.Field)
		if err != nil {
			return nil, err
		}
		keys[i] = val
	}

	idx := make([]int, len(sorted))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		c := Compare(keys[idx[i]], keys[idx[j]])
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	})

	out := make([]T, len(sorted))
	for i, k := range idx {
		out[i] = sorted[k]
	}
	return out, nil
}

// Compare orders two field values: -1, 0 or 1.
// nil, invalid null.* values and nil pointers compare as "". Numbers compare numerically,
// times chronologically, booleans false < true and everything else as case-insensitive text.
func Compare(a, b interface{}) int {
	a, b = normalize(a), normalize(b)

	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmpFloat(fa, fb)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			}
			return 0
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}

	sa, sb := strings.ToLower(toString(a)), strings.ToLower(toString(b))
	return strings.Compare(sa, sb)
}

func normalize(v interface{}) interface{} {
	if v == nil {
		return ""
	}
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil || dv == nil {
			return ""
		}
		v = dv
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func toFloat(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

// field resolution cache: struct type + requested name -> field index
var fieldCache sync.Map

type fieldKey struct {
	typ  reflect.Type
	name string
}

// FieldValue reads the sort key named field from rec. The name may be the wire name (codigo_sie),
// the Go name (CodigoSie), its camelCase form (codigoSie) or the json tag.
func FieldValue(rec interface{}, field string) (interface{}, error) {
	if s, ok := rec.(Sortable); ok {
		if v, ok := s.SortValue(field); ok {
			return v, nil
		}
	}

	rv := reflect.ValueOf(rec)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: "records are not sortable"})
	}

	key := fieldKey{typ: rv.Type(), name: field}
	if idx, ok := fieldCache.Load(key); ok {
		return rv.FieldByIndex(idx.([]int)).Interface(), nil
	}

	idx, candidates := resolveField(rv.Type(), field)
	if idx == nil {
		msg := fmt.Sprintf("unknown field %q", field)
		if s := suggest(field, candidates); s != "" {
			msg += fmt.Sprintf(", did you mean %q?", s)
		}
		return nil, core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: msg})
	}
	fieldCache.Store(key, idx)
	return rv.FieldByIndex(idx).Interface(), nil
}

func resolveField(typ reflect.Type, field string) ([]int, []string) {
	goName := strmangle.TitleCase(field)
	var candidates []string
	var folded []int

	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		tag := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if tag == "-" {
			tag = ""
		}
		switch {
		case sf.Name == field, sf.Name == goName, tag != "" && tag == field:
			return sf.Index, nil
		case folded == nil && (squash(sf.Name) == squash(field) || tag != "" && squash(tag) == squash(field)):
			folded = sf.Index
		}
		if tag != "" {
			candidates = append(candidates, tag)
		} else {
			candidates = append(candidates, sf.Name)
		}
	}
	if folded != nil {
		return folded, nil
	}
	return nil, candidates
}

// squash folds case and drops underscores: codigo_sie, codigoSie and CodigoSIE all squash to codigosie.
func squash(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

func suggest(field string, candidates []string) string {
	var best string
	bestRatio := 0.6
	for _, c := range candidates {
		m := difflib.NewMatcher(strings.Split(strings.ToLower(field), ""), strings.Split(strings.ToLower(c), ""))
		if r := m.Ratio(); r >= bestRatio {
			best, bestRatio = c, r
		}
	}
	return best
}
