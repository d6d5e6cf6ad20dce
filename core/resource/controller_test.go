package resource_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
	"github.com/trezcool/masomo-admin/core/resource/resourcetest"
)

func TestController_Load(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		err       error
		wantIDs   []int
		wantErr   bool
		wantState resource.State
	}{
		{name: "empty list", body: `[]`, wantIDs: []int{}, wantState: resource.Ready},
		{
			name:      "string ids",
			body:      `[{"id": "3", "nombre": "A"}, {"id": 5, "nombre": "B"}]`,
			wantIDs:   []int{3, 5},
			wantState: resource.Ready,
		},
		{
			name:      "malformed entries are skipped",
			body:      `[{"id": 1, "nombre": "A"}, {"id": 2}, {"nombre": "no id"}, {"id": 4, "nombre": "D"}]`,
			wantIDs:   []int{1, 4},
			wantState: resource.Ready,
		},
		{name: "not a list", body: `{"detail": "oops"}`, wantErr: true, wantState: resource.Idle},
		{name: "transport error", err: errors.New("timeout"), wantErr: true, wantState: resource.Idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := resourcetest.NewTransport().On("GET", widgetEndpoints.List, tt.body, tt.err)
			ctrl := newWidgetController(t, tr)
			assert.Equal(t, resource.Idle, ctrl.State())

			err := ctrl.Load(context.Background())
			if tt.wantErr {
				var lErr *core.LoadFailedError
				require.True(t, errors.As(err, &lErr), "want LoadFailedError, got %v", err)
				assert.Equal(t, "widgets", lErr.Resource)
				assert.Zero(t, ctrl.Len())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantIDs, ids(ctrl.Items()))
			}
			assert.Equal(t, tt.wantState, ctrl.State())
		})
	}
}

func TestController_Submit_create(t *testing.T) {
	ctrl, tr := loadWidgets(t, `[{"id": 1, "nombre": "A"}]`)
	tr.On("POST", widgetEndpoints.Create, `{"id": 42, "nombre": "Nuevo"}`, nil)

	rec, err := ctrl.Submit(context.Background(), widgetDraft{Name: "Nuevo"})
	require.NoError(t, err)
	assert.Equal(t, 42, rec.ID)
	assert.Equal(t, []int{1, 42}, ids(ctrl.Items()))

	got, ok := ctrl.Get(42)
	require.True(t, ok)
	assert.Equal(t, "Nuevo", got.Name)
	assert.Equal(t, resource.Ready, ctrl.State())
	assert.False(t, ctrl.Busy(0))
}

func TestController_Submit_createDoesNotDuplicate(t *testing.T) {
	ctrl, tr := loadWidgets(t, `[{"id": 42, "nombre": "Old"}]`)
	tr.On("POST", widgetEndpoints.Create, `{"id": 42, "nombre": "New"}`, nil)

	_, err := ctrl.Submit(context.Background(), widgetDraft{Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, []int{42}, ids(ctrl.Items()))
	got, _ := ctrl.Get(42)
	assert.Equal(t, "New", got.Name)
}

func TestController_Submit_update(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantName string
		wantCap  int
	}{
		{name: "record returned", body: `{"id": 7, "nombre": "X", "capacidad": 30}`, wantName: "X", wantCap: 30},
		{name: "empty body merges the draft", body: ``, wantName: "X", wantCap: 20},
		{name: "message only merges the draft", body: `{"mensaje": "ok"}`, wantName: "X", wantCap: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, tr := loadWidgets(t, `[{"id": 5, "nombre": "E"}, {"id": 7, "nombre": "Old", "capacidad": 20}]`)
			tr.On("PUT", "/widgets/7/edit/", tt.body, nil)

			_, err := ctrl.Submit(context.Background(), widgetDraft{ID: 7, Name: "X"})
			require.NoError(t, err)

			assert.Equal(t, []int{5, 7}, ids(ctrl.Items()))
			got, _ := ctrl.Get(7)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantCap, got.Capacity)

			calls := tr.Calls()
			assert.Equal(t, map[string]interface{}{"nombre": "X"}, calls[len(calls)-1].Payload.Fields)
		})
	}
}

func TestController_Submit_failureLeavesCollectionUnchanged(t *testing.T) {
	apiErr := errors.New("ci: ya existe")

	tests := []struct {
		name     string
		draft    widgetDraft
		method   string
		path     string
		wantKind core.MutationKind
	}{
		{name: "create", draft: widgetDraft{Name: "N"}, method: "POST", path: widgetEndpoints.Create, wantKind: core.MutationCreate},
		{name: "update", draft: widgetDraft{ID: 1, Name: "N"}, method: "PUT", path: "/widgets/1/edit/", wantKind: core.MutationUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, tr := loadWidgets(t, `[{"id": 1, "nombre": "A"}]`)
			before := ctrl.Items()
			tr.On(tt.method, tt.path, "", apiErr)

			_, err := ctrl.Submit(context.Background(), tt.draft)
			var mErr *core.MutationFailedError
			require.True(t, errors.As(err, &mErr))
			assert.Equal(t, tt.wantKind, mErr.Kind)
			assert.Equal(t, "ci: ya existe", mErr.Message())
			assert.Equal(t, before, ctrl.Items())
			assert.Equal(t, resource.Ready, ctrl.State())
		})
	}
}

func TestController_Submit_validation(t *testing.T) {
	tests := []struct {
		name      string
		draft     widgetDraft
		wantField string
	}{
		{name: "invalid email", draft: widgetDraft{Name: "A", Email: "ana@"}, wantField: "email"},
		{name: "missing name", draft: widgetDraft{}, wantField: "nombre"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, tr := loadWidgets(t, `[]`)
			calls := tr.CallCount()

			_, err := ctrl.Submit(context.Background(), tt.draft)
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "want ValidationError, got %v", err)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			assert.Equal(t, calls, tr.CallCount(), "no call must be issued")
		})
	}
}

func TestController_Remove(t *testing.T) {
	tests := []struct {
		name     string
		confirm  resource.ConfirmFunc
		respErr  error
		wantErr  error
		wantIDs  []int
		wantCall bool
	}{
		{name: "confirmed", confirm: yes, wantIDs: []int{5}, wantCall: true},
		{name: "declined", confirm: no, wantErr: core.ErrNotConfirmed, wantIDs: []int{5, 7}},
		{name: "no confirmation", confirm: nil, wantErr: core.ErrNotConfirmed, wantIDs: []int{5, 7}},
		{name: "backend failure", confirm: yes, respErr: errors.New("boom"), wantIDs: []int{5, 7}, wantCall: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, tr := loadWidgets(t, `[{"id": 5, "nombre": "E"}, {"id": 7, "nombre": "S"}]`)
			tr.On("DELETE", "/widgets/7/delete/", "", tt.respErr)
			calls := tr.CallCount()

			err := ctrl.Remove(context.Background(), 7, tt.confirm)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.respErr != nil:
				var mErr *core.MutationFailedError
				require.True(t, errors.As(err, &mErr))
				assert.Equal(t, core.MutationDelete, mErr.Kind)
				assert.Equal(t, 7, mErr.ID)
			default:
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantIDs, ids(ctrl.Items()))
			assert.Equal(t, tt.wantCall, tr.CallCount() > calls)
		})
	}
}

func TestController_updateAfterDeleteDoesNotResurrect(t *testing.T) {
	ctrl, tr := loadWidgets(t, `[{"id": 7, "nombre": "S"}]`)
	tr.On("PUT", "/widgets/7/edit/", `{"id": 7, "nombre": "late"}`, nil)
	tr.On("DELETE", "/widgets/7/delete/", "", nil)

	gate := make(chan struct{})
	tr.Hold(gate)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = ctrl.Submit(context.Background(), widgetDraft{ID: 7, Name: "late"})
	}()
	require.Eventually(t, func() bool { return tr.CallCount() == 2 }, timeout, tick)
	require.True(t, ctrl.Busy(7))

	// delete settles first
	tr.Hold(nil)
	require.NoError(t, ctrl.Remove(context.Background(), 7, yes))
	assert.Equal(t, resource.Mutating, ctrl.State())

	close(gate)
	wg.Wait()
	assert.Empty(t, ctrl.Items())
	assert.Equal(t, resource.Ready, ctrl.State())
	assert.False(t, ctrl.Busy(7))
}

func TestController_mutationDuringLoadIsReplayed(t *testing.T) {
	tr := resourcetest.NewTransport().
		On("GET", widgetEndpoints.List, `[{"id": 1, "nombre": "A"}]`, nil).
		On("GET", widgetEndpoints.List, `[{"id": 1, "nombre": "A"}]`, nil).
		On("POST", widgetEndpoints.Create, `{"id": 2, "nombre": "B"}`, nil)
	ctrl := newWidgetController(t, tr)
	require.NoError(t, ctrl.Load(context.Background()))

	gate := make(chan struct{})
	tr.Hold(gate)

	done := make(chan error)
	go func() { done <- ctrl.Load(context.Background()) }()
	require.Eventually(t, func() bool { return tr.CallCount() == 2 }, timeout, tick)

	tr.Hold(nil)
	_, err := ctrl.Submit(context.Background(), widgetDraft{Name: "B"})
	require.NoError(t, err)

	// the stale list settles last, the created record must survive it
	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, []int{1, 2}, ids(ctrl.Items()))
}

func TestController_forgetDuringLoadIsReplayed(t *testing.T) {
	list := `[{"id": 1, "nombre": "A", "capacidad": 3}, {"id": 2, "nombre": "B", "capacidad": 3}, {"id": 3, "nombre": "C"}]`
	tr := resourcetest.NewTransport().
		On("GET", widgetEndpoints.List, list, nil).
		On("GET", widgetEndpoints.List, list, nil)
	ctrl := newWidgetController(t, tr)
	require.NoError(t, ctrl.Load(context.Background()))

	gate := make(chan struct{})
	tr.Hold(gate)

	done := make(chan error)
	go func() { done <- ctrl.Load(context.Background()) }()
	require.Eventually(t, func() bool { return tr.CallCount() == 2 }, timeout, tick)
	require.Equal(t, resource.Loading, ctrl.State())

	n := ctrl.Forget(func(w widget) bool { return w.Capacity == 3 })
	assert.Equal(t, 2, n)

	// the stale list still holds the forgotten records
	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, []int{3}, ids(ctrl.Items()))

	tr.On("GET", widgetEndpoints.List, list, nil)
	require.NoError(t, ctrl.Load(context.Background()))
	assert.Equal(t, []int{1, 2, 3}, ids(ctrl.Items()), "the journal is dropped once loading is over")
}

func TestController_Discard(t *testing.T) {
	ctrl, tr := loadWidgets(t, `[{"id": 1, "nombre": "A"}]`)
	tr.On("POST", widgetEndpoints.Create, `{"id": 2, "nombre": "B"}`, nil)

	gate := make(chan struct{})
	tr.Hold(gate)

	done := make(chan error)
	go func() {
		_, err := ctrl.Submit(context.Background(), widgetDraft{Name: "B"})
		done <- err
	}()
	require.Eventually(t, func() bool { return tr.CallCount() == 2 }, timeout, tick)
	require.True(t, ctrl.Busy(0))

	ctrl.Discard()
	assert.Equal(t, resource.Idle, ctrl.State())
	assert.False(t, ctrl.Busy(0))

	close(gate)
	require.NoError(t, <-done)
	assert.Empty(t, ctrl.Items(), "late results must be dropped")
	assert.Equal(t, resource.Idle, ctrl.State())
}

func TestController_View(t *testing.T) {
	ctrl, _ := loadWidgets(t, `[
		{"id": 1, "nombre": "Carla", "codigo_sie": "8120001"},
		{"id": 2, "nombre": "ana", "codigo_sie": null},
		{"id": 3, "nombre": "Beto", "codigo_sie": "7120002"}
	]`)

	tests := []struct {
		name    string
		ord     core.Ordering
		filters []resource.Filter[widget]
		wantIDs []int
	}{
		{name: "insertion order", wantIDs: []int{1, 2, 3}},
		{name: "by name", ord: core.Ordering{Field: "nombre", Ascending: true}, wantIDs: []int{2, 3, 1}},
		{name: "by name desc", ord: core.Ordering{Field: "Name"}, wantIDs: []int{1, 3, 2}},
		{name: "nulls first", ord: core.Ordering{Field: "codigoSie", Ascending: true}, wantIDs: []int{2, 3, 1}},
		{
			name:    "short ci query matches everything",
			filters: []resource.Filter[widget]{resource.MinDigits("812", 7, func(w widget) string { return w.CodeSIE.String })},
			wantIDs: []int{1, 2, 3},
		},
		{
			name:    "ci query",
			filters: []resource.Filter[widget]{resource.MinDigits("8120001", 7, func(w widget) string { return w.CodeSIE.String })},
			wantIDs: []int{1},
		},
		{
			name:    "text query",
			ord:     core.Ordering{Field: "id"},
			filters: []resource.Filter[widget]{resource.Contains("A", func(w widget) string { return w.Name })},
			wantIDs: []int{2, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ctrl.View(tt.ord, tt.filters...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(items))
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		_, err := ctrl.View(core.Ordering{Field: "nombr", Ascending: true})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.Message(), `did you mean "nombre"`)
	})

	assert.Equal(t, []int{1, 2, 3}, ids(ctrl.Items()), "views never reorder the collection")
}

func TestController_readOnly(t *testing.T) {
	tr := resourcetest.NewTransport().On("GET", "/lookups/", `[{"id": 1, "nombre": "A"}]`, nil)
	ctrl := resource.NewController(resource.Options[widget, widgetDraft]{
		Name:      "lookups",
		Endpoints: resource.Endpoints{List: "/lookups/"},
		Codec:     widgetCodec{},
		Transport: tr,
	})
	require.True(t, ctrl.ReadOnly())
	require.NoError(t, ctrl.Load(context.Background()))

	_, err := ctrl.Submit(context.Background(), widgetDraft{Name: "B"})
	var mErr *core.MutationFailedError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, 1, tr.CallCount())
}

func TestNewLookup(t *testing.T) {
	tr := resourcetest.NewTransport().On("GET", "/lookups/", `[{"id": 1, "nombre": "A"}, {"nombre": "no id"}]`, nil)
	ctrl := resource.NewLookup("lookups", "/lookups/", widgetCodec{}.Decode, tr, nil)
	require.True(t, ctrl.ReadOnly())
	require.NoError(t, ctrl.Load(context.Background()))
	assert.Equal(t, []int{1}, ids(ctrl.Items()))

	err := ctrl.Remove(context.Background(), 1, yes)
	var mErr *core.MutationFailedError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, core.MutationDelete, mErr.Kind)
	assert.Equal(t, 1, tr.CallCount())
	assert.Equal(t, 1, ctrl.Len())
}
