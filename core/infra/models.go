package infra

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
)

// Classroom types
const (
	TypeClassroom  = "AUL"
	TypeLab        = "LAB"
	TypeWorkshop   = "TAL"
	TypeAuditorium = "AUD"
	TypeComputer   = "COM"
	TypeGym        = "GIM"
	TypeLibrary    = "BIB"
)

// Availability labels
const (
	LabelAvailable = "Disponible"
	LabelOccupied  = "Ocupada"
)

var (
	ClassroomTypes = []string{TypeClassroom, TypeLab, TypeWorkshop, TypeAuditorium, TypeComputer, TypeGym, TypeLibrary}

	roomTypeTag  = "roomtype"
	roomTypeText = "choose one of " + strings.Join(ClassroomTypes, ", ")

	validate, translator = core.NewValidator()
)

func init() {
	_ = validate.RegisterValidation(roomTypeTag, roomTypeValidation)
	core.RegisterCustomTranslation(validate, translator, roomTypeTag, roomTypeText)
}

func roomTypeValidation(fl validator.FieldLevel) bool {
	typ := fl.Field().String()
	for _, t := range ClassroomTypes {
		if t == typ {
			return true
		}
	}
	return false
}

// Module is a building block of a school that groups classrooms.
type Module struct {
	ID          int         `json:"id"`
	Name        string      `json:"nombre"`
	Capacity    int         `json:"cantidad_aulas"` // planned number of classrooms
	Description null.String `json:"descripcion"`
	SchoolID    int         `json:"colegio_fk"`
}

func (m Module) Identity() int { return m.ID }

type ModuleDraft struct {
	ID          int    `json:"id"`
	Name        string `json:"nombre" validate:"notblank"`
	Capacity    int    `json:"cantidad_aulas" validate:"min=0"`
	Description string `json:"descripcion"`
	SchoolID    int    `json:"colegio_fk" validate:"required"`
}

func (d ModuleDraft) Identity() int { return d.ID }

func (d *ModuleDraft) Validate() error {
	d.Name = core.CleanString(d.Name)
	d.Description = core.CleanString(d.Description)
	return core.ValidateStruct(validate, translator, d)
}

func EditModule(m Module) ModuleDraft {
	return ModuleDraft{
		ID:          m.ID,
		Name:        m.Name,
		Capacity:    m.Capacity,
		Description: m.Description.String,
		SchoolID:    m.SchoolID,
	}
}

// Classroom is an aula inside a Module. Available is the backend's `estado` flag: true means free.
type Classroom struct {
	ID        int         `json:"id"`
	ModuleID  int         `json:"modulo"`
	Name      string      `json:"nombre"`
	Capacity  int         `json:"capacidad"`
	Available bool        `json:"estado"`
	Type      string      `json:"tipo"`
	Equipment null.String `json:"equipamiento"`
	Floor     int         `json:"piso"`
}

func (c Classroom) Identity() int { return c.ID }

// Status is the availability label shown next to the classroom.
func (c Classroom) Status() string {
	if c.Available {
		return LabelAvailable
	}
	return LabelOccupied
}

func (c Classroom) SortValue(field string) (interface{}, bool) {
	if field == "estado" || field == "status" {
		return c.Status(), true
	}
	return nil, false
}

type ClassroomDraft struct {
	ID        int    `json:"id"`
	ModuleID  int    `json:"modulo" validate:"required"`
	Name      string `json:"nombre" validate:"notblank"`
	Capacity  int    `json:"capacidad" validate:"min=1"`
	Available bool   `json:"estado"`
	Type      string `json:"tipo" validate:"required,roomtype"`
	Equipment string `json:"equipamiento"`
	Floor     int    `json:"piso"`
}

func (d ClassroomDraft) Identity() int { return d.ID }

func (d *ClassroomDraft) Validate() error {
	d.Name = core.CleanString(d.Name)
	d.Type = strings.ToUpper(core.CleanString(d.Type))
	d.Equipment = core.CleanString(d.Equipment)
	return core.ValidateStruct(validate, translator, d)
}

// NewClassroom is the blank form for a classroom of module.
func NewClassroom(moduleID int) ClassroomDraft {
	return ClassroomDraft{ModuleID: moduleID, Capacity: 1, Available: true, Type: TypeClassroom, Floor: 1}
}

func EditClassroom(c Classroom) ClassroomDraft {
	return ClassroomDraft{
		ID:        c.ID,
		ModuleID:  c.ModuleID,
		Name:      c.Name,
		Capacity:  c.Capacity,
		Available: c.Available,
		Type:      c.Type,
		Equipment: c.Equipment.String,
		Floor:     c.Floor,
	}
}

// Occupancy renders "classrooms/planned" for m.
func Occupancy(m Module, classrooms []Classroom) string {
	n := 0
	for _, c := range classrooms {
		if c.ModuleID == m.ID {
			n++
		}
	}
	return fmt.Sprintf("%d/%d", n, m.Capacity)
}
