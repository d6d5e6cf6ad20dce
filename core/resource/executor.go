package resource

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

// Transport performs one backend call. A nil payload sends no body.
// It returns the raw response body, empty for 204 responses.
type Transport interface {
	Do(ctx context.Context, method, path string, payload *Payload) ([]byte, error)
}

// Endpoints are the backend paths of one resource. Update and Delete take the id as their only verb (%d).
// A resource with no Create, Update and Delete paths is read-only.
type Endpoints struct {
	List   string
	Create string
	Update string
	Delete string

	// Envelope is the key under which the backend wraps created/updated records, if any.
	Envelope string
}

func (eps Endpoints) ReadOnly() bool {
	return eps.Create == "" && eps.Update == "" && eps.Delete == ""
}

var errReadOnly = errors.New("resource is read-only")

// settled is a mutation the backend accepted, ready to be reconciled into a collection.
type settled[T Record] struct {
	seq  uint64
	kind core.MutationKind
	id   int
	rec  T
	// match replaces the id lookup for a delete of every matching record.
	match func(T) bool
}

// reconcile applies a settled mutation, keyed on id.
// A create replaces an entry with the same id instead of duplicating it;
// an update only replaces an entry still present, so it never resurrects a deleted record.
func (s settled[T]) reconcile(items []T) []T {
	if s.match != nil {
		kept := items[:0:0]
		for _, rec := range items {
			if !s.match(rec) {
				kept = append(kept, rec)
			}
		}
		return kept
	}

	pos := -1
	for i, rec := range items {
		if rec.Identity() == s.id {
			pos = i
			break
		}
	}

	switch s.kind {
	case core.MutationCreate:
		if pos >= 0 {
			items[pos] = s.rec
			return items
		}
		return append(items, s.rec)
	case core.MutationUpdate:
		if pos >= 0 {
			items[pos] = s.rec
		}
		return items
	case core.MutationDelete:
		if pos >= 0 {
			return append(items[:pos], items[pos+1:]...)
		}
	}
	return items
}

// executor issues the mutation calls of one resource. It never touches a collection:
// the controller reconciles what it returns.
type executor[T Record, D Draft] struct {
	name  string
	eps   Endpoints
	codec Codec[T, D]
	tr    Transport
}

func (ex *executor[T, D]) create(ctx context.Context, payload *Payload) (T, error) {
	var zero T
	if ex.eps.Create == "" {
		return zero, ex.failed(core.MutationCreate, 0, errReadOnly)
	}
	body, err := ex.tr.Do(ctx, http.MethodPost, ex.eps.Create, payload)
	if err != nil {
		return zero, ex.failed(core.MutationCreate, 0, err)
	}
	rec, err := ex.decode(body)
	if err != nil {
		return zero, ex.failed(core.MutationCreate, 0, errors.Wrap(err, "decoding created record"))
	}
	if rec.Identity() == 0 {
		return zero, ex.failed(core.MutationCreate, 0, errors.New("backend returned no id"))
	}
	return rec, nil
}

// update echoes draft onto current when the backend answers without a body.
func (ex *executor[T, D]) update(ctx context.Context, current T, draft D, payload *Payload) (T, error) {
	var zero T
	id := draft.Identity()
	if ex.eps.Update == "" {
		return zero, ex.failed(core.MutationUpdate, id, errReadOnly)
	}
	body, err := ex.tr.Do(ctx, http.MethodPut, fmt.Sprintf(ex.eps.Update, id), payload)
	if err != nil {
		return zero, ex.failed(core.MutationUpdate, id, err)
	}
	raw := Unwrap(bytes.TrimSpace(body), ex.eps.Envelope)
	if !hasID(raw) {
		// empty or partial answers (eg. `{"mensaje": "ok"}`) carry no record
		return ex.codec.Merge(current, draft), nil
	}
	rec, err := ex.codec.Decode(raw)
	if err != nil {
		return zero, ex.failed(core.MutationUpdate, id, errors.Wrap(err, "decoding updated record"))
	}
	return rec, nil
}

func (ex *executor[T, D]) delete(ctx context.Context, id int) error {
	if ex.eps.Delete == "" {
		return ex.failed(core.MutationDelete, id, errReadOnly)
	}
	if _, err := ex.tr.Do(ctx, http.MethodDelete, fmt.Sprintf(ex.eps.Delete, id), nil); err != nil {
		return ex.failed(core.MutationDelete, id, err)
	}
	return nil
}

func (ex *executor[T, D]) decode(body []byte) (T, error) {
	return ex.codec.Decode(Unwrap(body, ex.eps.Envelope))
}

func (ex *executor[T, D]) failed(kind core.MutationKind, id int, cause error) error {
	return &core.MutationFailedError{Resource: ex.name, Kind: kind, ID: id, Cause: cause}
}
