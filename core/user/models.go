package user

import (
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
)

// Roles
const (
	RoleAdmin      = 1
	RoleStudent    = 2
	RoleTeacher    = 3
	RoleSuperadmin = 4
	RoleTutor      = 5
)

var (
	Roles = []Role{
		{ID: RoleAdmin, Name: "Admin"},
		{ID: RoleStudent, Name: "Estudiante"},
		{ID: RoleTeacher, Name: "Profesor"},
		{ID: RoleSuperadmin, Name: "Superadmin"},
		{ID: RoleTutor, Name: "Tutor"},
	}

	// StaffRoles sign in to the administration dashboards.
	StaffRoles = []int{RoleAdmin, RoleSuperadmin}
)

type Role struct {
	ID   int    `json:"id"`
	Name string `json:"nombre"`
}

// RoleByID returns the known role with the given id.
func RoleByID(id int) (Role, bool) {
	for _, r := range Roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

// RoleByName matches a role name case-insensitively.
func RoleByName(name string) (Role, bool) {
	for _, r := range Roles {
		if strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return r, true
		}
	}
	return Role{}, false
}

func IsStaffRole(id int) bool {
	for _, r := range StaffRoles {
		if r == id {
			return true
		}
	}
	return false
}

type User struct {
	ID         int         `json:"id"`
	CI         string      `json:"ci"`
	Name       string      `json:"nombre"`
	Surname    string      `json:"apellido"`
	Email      string      `json:"email"`
	Username   string      `json:"username"`
	BirthDate  null.String `json:"fecha_nacimiento"` // YYYY-MM-DD
	Phone      null.String `json:"telefono"`
	Role       Role        `json:"rol"`
	PhotoURL   string      `json:"foto"`
	Active     bool        `json:"estado"`
	IsStaff    bool        `json:"is_staff"`
	IsActive   bool        `json:"is_active"`
	DateJoined null.Time   `json:"date_joined"`
}

func (u User) Identity() int { return u.ID }

func (u User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Surname)
}

// SortValue sorts users by role name rather than by the role object.
func (u User) SortValue(field string) (interface{}, bool) {
	switch field {
	case "rol", "role":
		return u.Role.Name, true
	case "nombre_completo", "fullName":
		return u.FullName(), true
	}
	return nil, false
}

// Draft contains the information a super admin may provide to register or edit a User.
type Draft struct {
	ID              int    `json:"id"`
	CI              string `json:"ci" validate:"notblank"`
	Name            string `json:"nombre" validate:"notblank"`
	Surname         string `json:"apellido" validate:"notblank"`
	Email           string `json:"email" validate:"required,strictemail"`
	Username        string `json:"username" validate:"omitempty,min=3,uname"`
	BirthDate       string `json:"fecha_nacimiento" validate:"omitempty,datetime=2006-01-02"`
	Phone           string `json:"telefono"`
	RoleID          int    `json:"rol" validate:"required,role"`
	Active          bool   `json:"estado"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"eqfield=Password"`
	PhotoName       string `json:"-"`
	Photo           []byte `json:"-" validate:"required_with=PhotoName"`
}

func (d Draft) Identity() int { return d.ID }

// Validate cleans up d and runs the form checks, including the role + credentials pair.
func (d *Draft) Validate() error {
	d.CI = core.CleanString(d.CI)
	d.Name = core.CleanString(d.Name)
	d.Surname = core.CleanString(d.Surname)
	d.Email = core.CleanString(d.Email, true /* lower */)
	d.Username = core.CleanString(d.Username, true /* lower */)
	d.BirthDate = core.CleanString(d.BirthDate)
	d.Phone = core.CleanString(d.Phone)
	return core.ValidateStruct(validate, translator, d)
}

// NewDraft is the blank registration form.
func NewDraft() Draft {
	return Draft{Active: true}
}

// Edit starts a Draft from an existing User. Password and photo are only sent when replaced.
func Edit(u User) Draft {
	return Draft{
		ID:        u.ID,
		CI:        u.CI,
		Name:      u.Name,
		Surname:   u.Surname,
		Email:     u.Email,
		Username:  u.Username,
		BirthDate: u.BirthDate.String,
		Phone:     u.Phone.String,
		RoleID:    u.Role.ID,
		Active:    u.Active,
	}
}

// Admin is the admin profile of a User, as listed by the admins lookup.
type Admin struct {
	UserID   int         `json:"usuario_id"`
	User     User        `json:"usuario"`
	Position null.String `json:"puesto"`
	Active   bool        `json:"estado"`
}

func (a Admin) Identity() int { return a.UserID }

// Label is how an admin is offered in pickers: "name (ci)".
func (a Admin) Label() string {
	return a.User.FullName() + " (" + a.User.CI + ")"
}

type SuperAdmin struct {
	UserID int  `json:"usuario_id"`
	User   User `json:"usuario"`
}

func (s SuperAdmin) Identity() int { return s.UserID }
