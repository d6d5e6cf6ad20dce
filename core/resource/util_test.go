package resource_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
	"github.com/trezcool/masomo-admin/core/resource/resourcetest"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

type widget struct {
	ID       int         `json:"id"`
	Name     string      `json:"nombre"`
	CodeSIE  null.String `json:"codigo_sie"`
	Capacity int         `json:"capacidad"`
	Active   bool        `json:"estado"`
}

func (w widget) Identity() int { return w.ID }

type widgetDraft struct {
	ID    int
	Name  string
	Email string
}

func (d widgetDraft) Identity() int { return d.ID }

type widgetCodec struct{}

func (widgetCodec) Decode(raw json.RawMessage) (widget, error) {
	var wire struct {
		ID       resource.WireID   `json:"id"`
		Name     *string           `json:"nombre"`
		CodeSIE  null.String       `json:"codigo_sie"`
		Capacity int               `json:"capacidad"`
		Active   resource.WireBool `json:"estado"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return widget{}, core.NewMalformedField("", err)
	}
	if wire.Name == nil {
		return widget{}, core.NewMalformedField("nombre", nil)
	}
	return widget{
		ID:       wire.ID.Int(),
		Name:     *wire.Name,
		CodeSIE:  wire.CodeSIE,
		Capacity: wire.Capacity,
		Active:   wire.Active.Bool(),
	}, nil
}

func (widgetCodec) Encode(d widgetDraft) (*resource.Payload, error) {
	return resource.NewPayload().Set("nombre", d.Name).Set("email", d.Email), nil
}

func (widgetCodec) Merge(current widget, d widgetDraft) widget {
	current.ID = d.ID
	if d.Name != "" {
		current.Name = d.Name
	}
	return current
}

var widgetEndpoints = resource.Endpoints{
	List:   "/widgets/",
	Create: "/widgets/new/",
	Update: "/widgets/%d/edit/",
	Delete: "/widgets/%d/delete/",
}

func newWidgetController(t *testing.T, tr resource.Transport) *resource.Controller[widget, widgetDraft] {
	t.Helper()
	return resource.NewController(resource.Options[widget, widgetDraft]{
		Name:      "widgets",
		Endpoints: widgetEndpoints,
		Codec:     widgetCodec{},
		Transport: tr,
		Validate: func(d *widgetDraft) error {
			var flds []core.FieldError
			if strings.TrimSpace(d.Name) == "" && d.ID == 0 {
				flds = append(flds, core.FieldError{Field: "nombre", Error: "this field is required"})
			}
			if d.Email != "" && !core.IsEmail(d.Email) {
				flds = append(flds, core.FieldError{Field: "email", Error: "enter a valid email address"})
			}
			if len(flds) > 0 {
				return core.NewValidationError(nil, flds...)
			}
			return nil
		},
	})
}

func loadWidgets(t *testing.T, body string) (*resource.Controller[widget, widgetDraft], *resourcetest.Transport) {
	t.Helper()
	tr := resourcetest.NewTransport().On("GET", widgetEndpoints.List, body, nil)
	ctrl := newWidgetController(t, tr)
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return ctrl, tr
}

func ids(items []widget) []int {
	out := make([]int, 0, len(items))
	for _, w := range items {
		out = append(out, w.ID)
	}
	return out
}

func yes(string) bool { return true }
func no(string) bool  { return false }
