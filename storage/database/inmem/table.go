package inmemdb

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/resource"
)

var ErrNotFound = errors.New("not found")

// Table is a map of rows keyed by id, safe for concurrent use.
// Ids are assigned on insert and never reused.
type Table[T resource.Record] struct {
	mutex   sync.RWMutex
	rows    map[int]T
	pkCount int
	setID   func(T, int) T
}

func NewTable[T resource.Record](setID func(T, int) T) *Table[T] {
	return &Table[T]{rows: make(map[int]T), setID: setID}
}

// query returns the rows ordered by id; callers hold the lock.
func (t *Table[T]) query() []T {
	rows := make([]T, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Identity() < rows[j].Identity() })
	return rows
}

func (t *Table[T]) All() []T {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.query()
}

func (t *Table[T]) Get(id int) (T, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if r, ok := t.rows[id]; ok {
		return r, nil
	}
	var zero T
	return zero, ErrNotFound
}

func (t *Table[T]) Exists(id int) bool {
	_, err := t.Get(id)
	return err == nil
}

// Find returns the first row, by id, that matches pred.
func (t *Table[T]) Find(pred func(T) bool) (T, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	for _, r := range t.query() {
		if pred(r) {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func (t *Table[T]) Filter(pred func(T) bool) []T {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	var rows []T
	for _, r := range t.query() {
		if pred(r) {
			rows = append(rows, r)
		}
	}
	return rows
}

func (t *Table[T]) Create(row T) T {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.pkCount++
	row = t.setID(row, t.pkCount)
	t.rows[t.pkCount] = row
	return row
}

func (t *Table[T]) Update(row T) (T, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.rows[row.Identity()]; !ok {
		var zero T
		return zero, ErrNotFound
	}
	t.rows[row.Identity()] = row
	return row, nil
}

func (t *Table[T]) Delete(id int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// DeleteWhere drops every row matching pred and returns how many went.
func (t *Table[T]) DeleteWhere(pred func(T) bool) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var n int
	for id, r := range t.rows {
		if pred(r) {
			delete(t.rows, id)
			n++
		}
	}
	return n
}

func (t *Table[T]) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.rows)
}
