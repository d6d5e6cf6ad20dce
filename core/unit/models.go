package unit

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
)

// Shifts
const (
	ShiftMorning   = "MAÑANA"
	ShiftAfternoon = "TARDE"
	ShiftEvening   = "NOCHE"
	ShiftFull      = "COMPLETO"
)

// Levels
const (
	LevelInitial   = "Inicial"
	LevelPrimary   = "Primaria"
	LevelSecondary = "Secundaria"
)

var (
	Shifts = []string{ShiftMorning, ShiftAfternoon, ShiftEvening, ShiftFull}
	Levels = []string{LevelInitial, LevelPrimary, LevelSecondary}

	shiftTag  = "shift"
	shiftText = "choose one of " + strings.Join(Shifts, ", ")

	validate, translator = core.NewValidator()
)

func init() {
	_ = validate.RegisterValidation(shiftTag, shiftValidation)
	core.RegisterCustomTranslation(validate, translator, shiftTag, shiftText)
}

func shiftValidation(fl validator.FieldLevel) bool {
	shift := fl.Field().String()
	for _, s := range Shifts {
		if s == shift {
			return true
		}
	}
	return false
}

// Unit is a unidad educativa: one shift of a school, identified by its SIE code.
type Unit struct {
	ID       int         `json:"id"`
	CodeSIE  string      `json:"codigo_sie"`
	Shift    string      `json:"turno"`
	Name     null.String `json:"nombre"`
	Address  null.String `json:"direccion"`
	Phone    null.String `json:"telefono"`
	Level    null.String `json:"nivel"`
	AdminID  int         `json:"administrador_id"`
	SchoolID int         `json:"colegio"`
}

func (u Unit) Identity() int { return u.ID }

type Draft struct {
	ID       int    `json:"id"`
	Name     string `json:"nombre" validate:"notblank"`
	CodeSIE  string `json:"codigo_sie" validate:"notblank"`
	Shift    string `json:"turno" validate:"required,shift"`
	Level    string `json:"nivel" validate:"required,oneof=Inicial Primaria Secundaria"`
	SchoolID int    `json:"colegio" validate:"required"`
	AdminID  int    `json:"administrador_id"`
	Address  string `json:"direccion"`
	Phone    string `json:"telefono"`
}

func (d Draft) Identity() int { return d.ID }

func (d *Draft) Validate() error {
	d.Name = core.CleanString(d.Name)
	d.CodeSIE = core.CleanString(d.CodeSIE)
	d.Shift = strings.ToUpper(core.CleanString(d.Shift))
	d.Address = core.CleanString(d.Address)
	d.Phone = core.CleanString(d.Phone)
	return core.ValidateStruct(validate, translator, d)
}

func Edit(u Unit) Draft {
	return Draft{
		ID:       u.ID,
		Name:     u.Name.String,
		CodeSIE:  u.CodeSIE,
		Shift:    u.Shift,
		Level:    u.Level.String,
		SchoolID: u.SchoolID,
		AdminID:  u.AdminID,
		Address:  u.Address.String,
		Phone:    u.Phone.String,
	}
}
