package infra

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
)

var (
	ModuleEndpoints = resource.Endpoints{
		List:   "/institucion/listar-modulos/",
		Create: "/institucion/crear-modulo/",
		Update: "/institucion/editar-modulo/%d/",
		Delete: "/institucion/eliminar-modulo/%d/",
	}
	ClassroomEndpoints = resource.Endpoints{
		List:   "/institucion/listar-aulas/",
		Create: "/institucion/nuevo-aula/",
		Update: "/institucion/editar-aula/%d/",
		Delete: "/institucion/eliminar-aula/%d/",
	}
)

type (
	ModuleController    = resource.Controller[Module, ModuleDraft]
	ClassroomController = resource.Controller[Classroom, ClassroomDraft]
)

type ModuleCodec struct{}

var _ resource.Codec[Module, ModuleDraft] = ModuleCodec{}

func (ModuleCodec) Decode(raw json.RawMessage) (Module, error) {
	var w struct {
		ID          resource.WireID  `json:"id"`
		Name        *string          `json:"nombre"`
		Capacity    resource.WireID  `json:"cantidad_aulas"`
		Description null.String      `json:"descripcion"`
		School      resource.WireRef `json:"colegio_fk"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return Module{}, core.NewMalformedField("", err)
	}
	if w.Name == nil {
		return Module{}, core.NewMalformedField("nombre", nil)
	}
	return Module{
		ID:          w.ID.Int(),
		Name:        *w.Name,
		Capacity:    w.Capacity.Int(),
		Description: w.Description,
		SchoolID:    w.School.Int(),
	}, nil
}

func (ModuleCodec) Encode(d ModuleDraft) (*resource.Payload, error) {
	return resource.NewPayload().
		Set("nombre", d.Name).
		Set("cantidad_aulas", d.Capacity).
		Set("descripcion", d.Description).
		Set("colegio_fk", d.SchoolID), nil
}

func (ModuleCodec) Merge(m Module, d ModuleDraft) Module {
	m.ID = d.ID
	if d.Name != "" {
		m.Name = d.Name
	}
	m.Capacity = d.Capacity
	if d.Description != "" {
		m.Description = null.StringFrom(d.Description)
	}
	if d.SchoolID != 0 {
		m.SchoolID = d.SchoolID
	}
	return m
}

type ClassroomCodec struct{}

var _ resource.Codec[Classroom, ClassroomDraft] = ClassroomCodec{}

func (ClassroomCodec) Decode(raw json.RawMessage) (Classroom, error) {
	var w struct {
		ID        resource.WireID   `json:"id"`
		Module    resource.WireRef  `json:"modulo"`
		Name      *string           `json:"nombre"`
		Capacity  resource.WireID   `json:"capacidad"`
		Available resource.WireBool `json:"estado"`
		Type      null.String       `json:"tipo"`
		Equipment null.String       `json:"equipamiento"`
		Floor     resource.WireID   `json:"piso"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return Classroom{}, core.NewMalformedField("", err)
	}
	if w.Name == nil {
		return Classroom{}, core.NewMalformedField("nombre", nil)
	}
	return Classroom{
		ID:        w.ID.Int(),
		ModuleID:  w.Module.Int(),
		Name:      *w.Name,
		Capacity:  w.Capacity.Int(),
		Available: w.Available.Bool(),
		Type:      w.Type.String,
		Equipment: w.Equipment,
		Floor:     w.Floor.Int(),
	}, nil
}

func (ClassroomCodec) Encode(d ClassroomDraft) (*resource.Payload, error) {
	return resource.NewPayload().
		Set("modulo", d.ModuleID).
		Set("nombre", d.Name).
		Set("capacidad", d.Capacity).
		Set("estado", d.Available).
		Set("tipo", d.Type).
		Set("equipamiento", d.Equipment).
		Set("piso", d.Floor), nil
}

func (ClassroomCodec) Merge(c Classroom, d ClassroomDraft) Classroom {
	c.ID = d.ID
	c.ModuleID = d.ModuleID
	c.Name = d.Name
	c.Capacity = d.Capacity
	c.Available = d.Available
	c.Type = d.Type
	if d.Equipment != "" {
		c.Equipment = null.StringFrom(d.Equipment)
	}
	c.Floor = d.Floor
	return c
}

func NewModuleController(tr resource.Transport, logger core.Logger) *ModuleController {
	return resource.NewController(resource.Options[Module, ModuleDraft]{
		Name:      "modules",
		Endpoints: ModuleEndpoints,
		Codec:     ModuleCodec{},
		Transport: tr,
		Validate:  (*ModuleDraft).Validate,
		Logger:    logger,
	})
}

func NewClassroomController(tr resource.Transport, logger core.Logger) *ClassroomController {
	return resource.NewController(resource.Options[Classroom, ClassroomDraft]{
		Name:      "classrooms",
		Endpoints: ClassroomEndpoints,
		Codec:     ClassroomCodec{},
		Transport: tr,
		Validate:  (*ClassroomDraft).Validate,
		Logger:    logger,
	})
}

// CascadeModuleDelete removes a module and, once the backend confirmed it, drops its classrooms
// from the classroom collection. The backend deletes them on its side.
func CascadeModuleDelete(ctx context.Context, modules *ModuleController, classrooms *ClassroomController, id int, confirm resource.ConfirmFunc) (int, error) {
	if err := modules.Remove(ctx, id, confirm); err != nil {
		return 0, err
	}
	return classrooms.Forget(func(c Classroom) bool { return c.ModuleID == id }), nil
}

// InModule keeps the classrooms of one module.
func InModule(moduleID int) resource.Filter[Classroom] {
	return resource.Where(func(c Classroom) bool { return c.ModuleID == moduleID })
}

// Search matches query against the classroom name, type and availability label.
func Search(query string) resource.Filter[Classroom] {
	return resource.Contains(query, func(c Classroom) string {
		return fmt.Sprintf("%s%s%s", c.Name, c.Type, c.Status())
	})
}

// ModuleName resolves the display name of a classroom's module.
func ModuleName(modules map[int]Module, c Classroom) string {
	return resource.Label(modules, c.ModuleID, func(m Module) string { return m.Name }, "-")
}

var errNoModule = errors.New("module not found")

// Classrooms returns the classrooms of module id in the requested ordering.
func Classrooms(modules *ModuleController, classrooms *ClassroomController, id int, ord core.Ordering, query string) (Module, []Classroom, error) {
	m, ok := modules.Get(id)
	if !ok {
		return Module{}, nil, errors.Wrapf(errNoModule, "module #%d", id)
	}
	items, err := classrooms.View(ord, InModule(id), Search(query))
	return m, items, err
}
