package unit

import (
	"encoding/json"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
)

var Endpoints = resource.Endpoints{
	List:   "/institucion/listar-unidades-educativas/",
	Create: "/institucion/nueva-unidad-educativa/",
	Update: "/institucion/editar-unidad-educativa/%d/",
	Delete: "/institucion/eliminar-unidad-educativa/%d/",
}

type wireUnit struct {
	ID      resource.WireID  `json:"id"`
	CodeSIE null.String      `json:"codigo_sie"`
	Shift   null.String      `json:"turno"`
	Name    null.String      `json:"nombre"`
	Address null.String      `json:"direccion"`
	Phone   null.String      `json:"telefono"`
	Level   null.String      `json:"nivel"`
	Admin   resource.WireRef `json:"administrador_id"`
	School  resource.WireRef `json:"colegio"`
}

type Codec struct{}

var _ resource.Codec[Unit, Draft] = Codec{}

func (Codec) Decode(raw json.RawMessage) (Unit, error) {
	var w wireUnit
	if err := json.Unmarshal(raw, &w); err != nil {
		return Unit{}, core.NewMalformedField("", err)
	}
	if w.ID == 0 {
		return Unit{}, core.NewMalformedField("id", nil)
	}
	if !w.CodeSIE.Valid {
		return Unit{}, core.NewMalformedField("codigo_sie", nil)
	}
	return Unit{
		ID:       w.ID.Int(),
		CodeSIE:  w.CodeSIE.String,
		Shift:    w.Shift.String,
		Name:     w.Name,
		Address:  w.Address,
		Phone:    w.Phone,
		Level:    w.Level,
		AdminID:  w.Admin.Int(),
		SchoolID: w.School.Int(),
	}, nil
}

func (Codec) Encode(d Draft) (*resource.Payload, error) {
	return resource.NewPayload().
		Set("nombre", d.Name).
		Set("codigo_sie", d.CodeSIE).
		Set("turno", d.Shift).
		Set("nivel", d.Level).
		Set("colegio", null.NewInt(d.SchoolID, d.SchoolID != 0)).
		Set("administrador_id", null.NewInt(d.AdminID, d.AdminID != 0)).
		Set("direccion", d.Address).
		Set("telefono", d.Phone), nil
}

func (Codec) Merge(u Unit, d Draft) Unit {
	u.ID = d.ID
	u.CodeSIE = d.CodeSIE
	u.Shift = d.Shift
	if d.Name != "" {
		u.Name = null.StringFrom(d.Name)
	}
	if d.Level != "" {
		u.Level = null.StringFrom(d.Level)
	}
	u.SchoolID = d.SchoolID
	if d.AdminID != 0 {
		u.AdminID = d.AdminID
	}
	if d.Address != "" {
		u.Address = null.StringFrom(d.Address)
	}
	if d.Phone != "" {
		u.Phone = null.StringFrom(d.Phone)
	}
	return u
}

func NewController(tr resource.Transport, logger core.Logger) *resource.Controller[Unit, Draft] {
	return resource.NewController(resource.Options[Unit, Draft]{
		Name:      "units",
		Endpoints: Endpoints,
		Codec:     Codec{},
		Transport: tr,
		Validate:  (*Draft).Validate,
		Logger:    logger,
	})
}
