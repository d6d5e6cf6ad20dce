package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Mutating
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Mutating:
		return "mutating"
	}
	return "idle"
}

// ConfirmFunc asks the user to confirm a destructive action.
type ConfirmFunc func(prompt string) bool

// Options configure a Controller. Name, Endpoints, Codec and Transport are required.
type Options[T Record, D Draft] struct {
	Name      string
	Endpoints Endpoints
	Codec     Codec[T, D]
	Transport Transport

	// Validate runs before any create/update call and may normalize the draft.
	// It should return a *core.ValidationError.
	Validate func(*D) error
	Logger   core.Logger
}

// Controller owns the in-memory collection of one resource and mediates every change to it.
// It is safe for concurrent use; backend calls are made outside the lock.
type Controller[T Record, D Draft] struct {
	name     string
	eps      Endpoints
	validate func(*D) error
	logger   core.Logger
	exec     *executor[T, D]

	mu       sync.RWMutex
	items    []T
	loaded   bool
	loading  int
	pending  int
	inflight map[int]int // id -> in-flight mutations, 0 for creates
	gen      uint64      // bumped by Discard; results of an older generation are dropped
	seq      uint64
	journal  []settled[T] // mutations settled while a load is in flight
}

func NewController[T Record, D Draft](opts Options[T, D]) *Controller[T, D] {
	logger := opts.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Controller[T, D]{
		name:     opts.Name,
		eps:      opts.Endpoints,
		validate: opts.Validate,
		logger:   logger,
		exec: &executor[T, D]{
			name:  opts.Name,
			eps:   opts.Endpoints,
			codec: opts.Codec,
			tr:    opts.Transport,
		},
		inflight: make(map[int]int),
	}
}

// NewLookup builds a list-only Controller, used for reference collections joined at render time.
func NewLookup[T Record](name, list string, decode func(json.RawMessage) (T, error), tr Transport, logger core.Logger) *Controller[T, NoDraft] {
	return NewController(Options[T, NoDraft]{
		Name:      name,
		Endpoints: Endpoints{List: list},
		Codec:     DecodeOnly[T](decode),
		Transport: tr,
		Logger:    logger,
	})
}

func (c *Controller[T, D]) Name() string { return c.name }

func (c *Controller[T, D]) ReadOnly() bool { return c.eps.ReadOnly() }

// Load fetches the full list and replaces the collection with it.
// Malformed entries are skipped and logged. On failure the collection is emptied.
func (c *Controller[T, D]) Load(ctx context.Context) error {
	c.mu.Lock()
	gen, since := c.gen, c.seq
	c.loading++
	c.mu.Unlock()

	body, err := c.exec.tr.Do(ctx, http.MethodGet, c.eps.List, nil)
	var (
		items   []T
		skipped []error
	)
	if err == nil {
		items, skipped, err = DecodeList(c.name, body, c.exec.codec.Decode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.loading--
	defer c.trimJournal()

	if err != nil {
		c.items = nil
		c.loaded = false
		c.logger.Error(fmt.Sprintf("%s: load failed: %v", c.name, err), err)
		return &core.LoadFailedError{Resource: c.name, Cause: err}
	}
	for _, sErr := range skipped {
		c.logger.Warn(fmt.Sprintf("skipping record: %v", sErr), sErr)
	}
	for _, s := range c.journal {
		if s.seq > since {
			items = s.reconcile(items)
		}
	}
	c.items = items
	c.loaded = true
	c.logger.Debug(fmt.Sprintf("%s: loaded %d records", c.name, len(items)))
	return nil
}

// Submit validates draft and persists it: a create when draft.Identity() is 0, an update otherwise.
// The collection only changes once the backend accepted the call.
func (c *Controller[T, D]) Submit(ctx context.Context, draft D) (T, error) {
	var zero T
	if c.validate != nil {
		if err := c.validate(&draft); err != nil {
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) {
				err = core.NewValidationError(err)
			}
			return zero, err
		}
	}
	payload, err := c.exec.codec.Encode(draft)
	if err != nil {
		return zero, core.NewValidationError(errors.Wrap(err, "encoding"))
	}

	id := draft.Identity()
	if id == 0 {
		gen := c.begin(0)
		rec, err := c.exec.create(ctx, payload)
		if err != nil {
			c.abort(0, gen, err)
			return zero, err
		}
		c.settle(gen, settled[T]{kind: core.MutationCreate, id: rec.Identity(), rec: rec}, 0)
		return rec, nil
	}

	current, _ := c.Get(id)
	gen := c.begin(id)
	rec, err := c.exec.update(ctx, current, draft, payload)
	if err != nil {
		c.abort(id, gen, err)
		return zero, err
	}
	c.settle(gen, settled[T]{kind: core.MutationUpdate, id: id, rec: rec}, id)
	return rec, nil
}

// Remove deletes the record with the given id once confirm approves it.
// Without a positive confirmation no call is made and core.ErrNotConfirmed is returned.
func (c *Controller[T, D]) Remove(ctx context.Context, id int, confirm ConfirmFunc) error {
	if confirm == nil || !confirm(fmt.Sprintf("Delete %s #%d?", c.name, id)) {
		return core.ErrNotConfirmed
	}
	gen := c.begin(id)
	if err := c.exec.delete(ctx, id); err != nil {
		c.abort(id, gen, err)
		return err
	}
	c.settle(gen, settled[T]{kind: core.MutationDelete, id: id}, id)
	return nil
}

// Forget drops records from the collection without any backend call, for records the backend
// removed as a side effect of another mutation. A list still loading is filtered the same way.
func (c *Controller[T, D]) Forget(match func(T) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0:0]
	for _, rec := range c.items {
		if !match(rec) {
			kept = append(kept, rec)
		}
	}
	n := len(c.items) - len(kept)
	c.items = kept
	if c.loading > 0 {
		c.seq++
		c.journal = append(c.journal, settled[T]{seq: c.seq, kind: core.MutationDelete, match: match})
	}
	return n
}

// View returns a sorted, filtered copy of the collection.
func (c *Controller[T, D]) View(ord core.Ordering, filters ...Filter[T]) ([]T, error) {
	c.mu.RLock()
	items := make([]T, len(c.items))
	copy(items, c.items)
	c.mu.RUnlock()

	return Sort(apply(items, filters), ord)
}

// Items returns a snapshot of the collection in insertion order.
func (c *Controller[T, D]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]T, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Controller[T, D]) Get(id int) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Lookup(c.items, id)
}

func (c *Controller[T, D]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Controller[T, D]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.pending > 0:
		return Mutating
	case c.loading > 0:
		return Loading
	case c.loaded:
		return Ready
	}
	return Idle
}

// Busy reports whether a mutation on id is in flight (id 0: a create).
func (c *Controller[T, D]) Busy(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight[id] > 0
}

// Discard empties the controller. Calls still in flight are not cancelled
// but their results are ignored.
func (c *Controller[T, D]) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items = nil
	c.loaded = false
	c.loading = 0
	c.pending = 0
	c.inflight = make(map[int]int)
	c.journal = nil
}

func (c *Controller[T, D]) begin(id int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending++
	c.inflight[id]++
	return c.gen
}

func (c *Controller[T, D]) done(id int) {
	c.pending--
	if c.inflight[id]--; c.inflight[id] <= 0 {
		delete(c.inflight, id)
	}
}

func (c *Controller[T, D]) abort(id int, gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.done(id)
	c.logger.Error(err.Error(), err)
}

func (c *Controller[T, D]) settle(gen uint64, s settled[T], key int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.done(key)
	c.seq++
	s.seq = c.seq
	c.items = s.reconcile(c.items)
	if c.loading > 0 {
		c.journal = append(c.journal, s)
	}
	c.logger.Debug(fmt.Sprintf("%s: %s #%d settled", c.name, s.kind, s.id))
}

func (c *Controller[T, D]) trimJournal() {
	if c.loading == 0 {
		c.journal = nil
	}
}
