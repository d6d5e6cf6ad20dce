package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core/infra"
	"github.com/trezcool/masomo-admin/core/school"
	"github.com/trezcool/masomo-admin/core/unit"
	"github.com/trezcool/masomo-admin/core/user"
	"github.com/trezcool/masomo-admin/storage/database/inmem"
)

func (s *server) registerInstitutionAPI(g *echo.Group) {
	db := s.opts.DB

	schools := crud[school.School, schoolRequest, *schoolRequest]{
		s:     s,
		table: db.Schools,
		upload: func(ctx echo.Context, req *schoolRequest) (err error) {
			req.logo, err = s.saveUpload(ctx, "logo", "logos")
			return err
		},
		onDelete: func(id int) {
			db.Units.DeleteWhere(func(u unit.Unit) bool { return u.SchoolID == id })
			for _, m := range db.Modules.Filter(func(m infra.Module) bool { return m.SchoolID == id }) {
				_ = db.Modules.Delete(m.ID)
				db.Classrooms.DeleteWhere(func(c infra.Classroom) bool { return c.ModuleID == m.ID })
			}
		},
	}
	schools.register(g, crudPaths{list: "/listar-colegios", create: "/crear", update: "/editar", delete: "/eliminar"})

	units := crud[unit.Unit, unitRequest, *unitRequest]{s: s, table: db.Units}
	units.register(g, crudPaths{
		list:   "/listar-unidades-educativas",
		create: "/nueva-unidad-educativa",
		update: "/editar-unidad-educativa",
		delete: "/eliminar-unidad-educativa",
	})

	modules := crud[infra.Module, moduleRequest, *moduleRequest]{
		s:     s,
		table: db.Modules,
		onDelete: func(id int) {
			db.Classrooms.DeleteWhere(func(c infra.Classroom) bool { return c.ModuleID == id })
		},
	}
	modules.register(g, crudPaths{list: "/listar-modulos", create: "/crear-modulo", update: "/editar-modulo", delete: "/eliminar-modulo"})

	classrooms := crud[infra.Classroom, classroomRequest, *classroomRequest]{s: s, table: db.Classrooms}
	classrooms.register(g, crudPaths{list: "/listar-aulas", create: "/nuevo-aula", update: "/editar-aula", delete: "/eliminar-aula"})
}

// optional applies an optional request field onto the stored value.
// A field left out of an update (nil) keeps the stored value, an empty one clears it.
func optional(v *string, current null.String) null.String {
	if v == nil {
		return current
	}
	return null.NewString(*v, *v != "")
}

type schoolRequest struct {
	Name    string  `json:"nombre" form:"nombre" validate:"notblank"`
	Address string  `json:"direccion" form:"direccion" validate:"notblank"`
	Phone   *string `json:"telefono" form:"telefono"`
	Email   string  `json:"email" form:"email" validate:"omitempty,strictemail"`
	Website string  `json:"sitio_web" form:"sitio_web"`
	OwnerID int     `json:"usuario_id" form:"usuario_id"`
	logo    string
}

func (r *schoolRequest) check(db *inmemdb.DB, _ int) error {
	if r.OwnerID != 0 && !db.Accounts.Exists(r.OwnerID) {
		return fieldError("usuario_id", msgNoObject)
	}
	return nil
}

func (r *schoolRequest) apply(s school.School) school.School {
	s.Name = r.Name
	s.Address = r.Address
	if r.Phone != nil {
		s.Phone = *r.Phone
	}
	if r.Email != "" {
		s.Email = null.StringFrom(r.Email)
	}
	if r.Website != "" {
		s.Website = null.StringFrom(r.Website)
	}
	if r.OwnerID != 0 {
		s.OwnerID = r.OwnerID
	}
	if r.logo != "" {
		s.LogoURL = r.logo
	}
	return s
}

type unitRequest struct {
	Name     string  `json:"nombre" validate:"notblank"`
	CodeSIE  string  `json:"codigo_sie" validate:"notblank"`
	Shift    string  `json:"turno" validate:"required,oneof=MAÑANA TARDE NOCHE COMPLETO"`
	Level    *string `json:"nivel" validate:"omitempty,oneof=Inicial Primaria Secundaria"`
	SchoolID int     `json:"colegio" validate:"required"`
	AdminID  *int    `json:"administrador_id"`
	Address  *string `json:"direccion"`
	Phone    *string `json:"telefono"`
}

func (r *unitRequest) check(db *inmemdb.DB, id int) error {
	if !db.Schools.Exists(r.SchoolID) {
		return fieldError("colegio", msgNoObject)
	}
	if r.AdminID != nil && *r.AdminID != 0 {
		acc, err := db.Accounts.Get(*r.AdminID)
		if err != nil || acc.User.Role.ID != user.RoleAdmin {
			return fieldError("administrador_id", msgNoObject)
		}
	}
	if _, taken := db.Units.Find(func(u unit.Unit) bool { return u.ID != id && u.CodeSIE == r.CodeSIE }); taken {
		return fieldError("codigo_sie", msgExists)
	}
	return nil
}

func (r *unitRequest) apply(u unit.Unit) unit.Unit {
	u.Name = null.StringFrom(r.Name)
	u.CodeSIE = r.CodeSIE
	u.Shift = r.Shift
	u.Level = optional(r.Level, u.Level)
	u.SchoolID = r.SchoolID
	if r.AdminID != nil {
		u.AdminID = *r.AdminID
	}
	u.Address = optional(r.Address, u.Address)
	u.Phone = optional(r.Phone, u.Phone)
	return u
}

type moduleRequest struct {
	Name        string  `json:"nombre" validate:"notblank"`
	Capacity    int     `json:"cantidad_aulas" validate:"min=0"`
	Description *string `json:"descripcion"`
	SchoolID    int     `json:"colegio_fk" validate:"required"`
}

func (r *moduleRequest) check(db *inmemdb.DB, _ int) error {
	if !db.Schools.Exists(r.SchoolID) {
		return fieldError("colegio_fk", msgNoObject)
	}
	return nil
}

func (r *moduleRequest) apply(m infra.Module) infra.Module {
	m.Name = r.Name
	m.Capacity = r.Capacity
	m.Description = optional(r.Description, m.Description)
	m.SchoolID = r.SchoolID
	return m
}

type classroomRequest struct {
	ModuleID  int     `json:"modulo" validate:"required"`
	Name      string  `json:"nombre" validate:"notblank"`
	Capacity  int     `json:"capacidad" validate:"min=1"`
	Available bool    `json:"estado"`
	Type      string  `json:"tipo" validate:"required,oneof=AUL LAB TAL AUD COM GIM BIB"`
	Equipment *string `json:"equipamiento"`
	Floor     int     `json:"piso"`
}

func (r *classroomRequest) check(db *inmemdb.DB, _ int) error {
	if !db.Modules.Exists(r.ModuleID) {
		return fieldError("modulo", msgNoObject)
	}
	return nil
}

func (r *classroomRequest) apply(c infra.Classroom) infra.Classroom {
	c.ModuleID = r.ModuleID
	c.Name = r.Name
	c.Capacity = r.Capacity
	c.Available = r.Available
	c.Type = r.Type
	c.Equipment = optional(r.Equipment, c.Equipment)
	c.Floor = r.Floor
	return c
}
