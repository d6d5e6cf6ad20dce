package user

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
)

var Endpoints = resource.Endpoints{
	List:     "/user/auth/listar-usuarios/",
	Create:   "/user/auth/register/",
	Update:   "/user/auth/editar-usuario/%d/",
	Delete:   "/user/auth/eliminar-usuario/%d/",
	Envelope: "usuario",
}

const (
	AdminsPath      = "/user/auth/listar-admins/"
	SuperAdminsPath = "/user/auth/listar-superadmins/"
)

type (
	Controller           = resource.Controller[User, Draft]
	AdminController      = resource.Controller[Admin, resource.NoDraft]
	SuperAdminController = resource.Controller[SuperAdmin, resource.NoDraft]
)

type wireUser struct {
	ID         resource.WireID    `json:"id"`
	CI         null.String        `json:"ci"`
	Name       null.String        `json:"nombre"`
	Surname    null.String        `json:"apellido"`
	Email      null.String        `json:"email"`
	Username   null.String        `json:"username"`
	BirthDate  null.String        `json:"fecha_nacimiento"`
	Phone      null.String        `json:"telefono"`
	Role       json.RawMessage    `json:"rol"`
	Photo      null.String        `json:"foto"`
	Active     *resource.WireBool `json:"estado"`
	IsStaff    resource.WireBool  `json:"is_staff"`
	IsActive   *resource.WireBool `json:"is_active"`
	DateJoined null.String        `json:"date_joined"`
}

type Codec struct {
	AssetBase string
}

var _ resource.Codec[User, Draft] = Codec{}

func (c Codec) Decode(raw json.RawMessage) (User, error) {
	var w wireUser
	if err := json.Unmarshal(raw, &w); err != nil {
		return User{}, core.NewMalformedField("", err)
	}
	if w.ID == 0 {
		return User{}, core.NewMalformedField("id", nil)
	}
	if !w.Username.Valid || w.Username.String == "" {
		return User{}, core.NewMalformedField("username", nil)
	}
	role, err := decodeRole(w.Role)
	if err != nil {
		return User{}, core.NewMalformedField("rol", err)
	}
	return User{
		ID:         w.ID.Int(),
		CI:         w.CI.String,
		Name:       w.Name.String,
		Surname:    w.Surname.String,
		Email:      w.Email.String,
		Username:   w.Username.String,
		BirthDate:  w.BirthDate,
		Phone:      w.Phone,
		Role:       role,
		PhotoURL:   resource.AssetURL(c.AssetBase, w.Photo.String),
		Active:     w.Active == nil || w.Active.Bool(),
		IsStaff:    w.IsStaff.Bool(),
		IsActive:   w.IsActive == nil || w.IsActive.Bool(),
		DateJoined: parseTime(w.DateJoined),
	}, nil
}

// decodeRole reads `rol` sent as {id, nombre}, as a bare id or as the role name.
func decodeRole(raw json.RawMessage) (Role, error) {
	if len(raw) == 0 {
		return Role{}, nil
	}
	value, dataType, _, err := jsonparser.Get(raw)
	if err != nil {
		return Role{}, errors.Wrap(err, "parsing role")
	}
	switch dataType {
	case jsonparser.Null:
		return Role{}, nil
	case jsonparser.String:
		if r, ok := RoleByName(string(value)); ok {
			return r, nil
		}
	}

	var ref resource.WireRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return Role{}, err
	}
	r := Role{ID: ref.Int()}
	if dataType == jsonparser.Object {
		r.Name, _ = jsonparser.GetString(raw, "nombre")
	}
	if known, ok := RoleByID(r.ID); ok && r.Name == "" {
		r.Name = known.Name
	}
	return r, nil
}

func parseTime(s null.String) null.Time {
	if !s.Valid {
		return null.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s.String)); err == nil {
			return null.TimeFrom(t)
		}
	}
	return null.Time{}
}

// Encode always builds a form: registration and edition are multipart endpoints.
func (Codec) Encode(d Draft) (*resource.Payload, error) {
	return resource.NewPayload().AsForm().
		Set("ci", d.CI).
		Set("nombre", d.Name).
		Set("apellido", d.Surname).
		Set("email", d.Email).
		Set("username", d.Username).
		Set("fecha_nacimiento", d.BirthDate).
		Set("telefono", d.Phone).
		Set("rol", d.RoleID).
		Set("estado", d.Active).
		Set("password", d.Password).
		AttachFile("foto", d.PhotoName, d.Photo), nil
}

func (Codec) Merge(u User, d Draft) User {
	u.ID = d.ID
	if d.CI != "" {
		u.CI = d.CI
	}
	if d.Name != "" {
		u.Name = d.Name
	}
	if d.Surname != "" {
		u.Surname = d.Surname
	}
	if d.Email != "" {
		u.Email = d.Email
	}
	if d.Username != "" {
		u.Username = d.Username
	}
	if d.BirthDate != "" {
		u.BirthDate = null.StringFrom(d.BirthDate)
	}
	if d.Phone != "" {
		u.Phone = null.StringFrom(d.Phone)
	}
	if r, ok := RoleByID(d.RoleID); ok {
		u.Role = r
	}
	u.Active = d.Active
	return u
}

// DecodeAdmin reads an entry of the admins lookup: {usuario_id, usuario: {...}, puesto, estado}.
func (c Codec) DecodeAdmin(raw json.RawMessage) (Admin, error) {
	var w struct {
		UserID   resource.WireRef   `json:"usuario_id"`
		User     json.RawMessage    `json:"usuario"`
		Position null.String        `json:"puesto"`
		Active   *resource.WireBool `json:"estado"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return Admin{}, core.NewMalformedField("", err)
	}
	usr, err := c.nestedUser(w.User)
	if err != nil {
		return Admin{}, err
	}
	a := Admin{
		UserID:   w.UserID.Int(),
		User:     usr,
		Position: w.Position,
		Active:   w.Active == nil || w.Active.Bool(),
	}
	if a.UserID == 0 {
		a.UserID = usr.ID
	}
	return a, nil
}

func (c Codec) DecodeSuperAdmin(raw json.RawMessage) (SuperAdmin, error) {
	var w struct {
		UserID resource.WireRef `json:"usuario_id"`
		User   json.RawMessage  `json:"usuario"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return SuperAdmin{}, core.NewMalformedField("", err)
	}
	usr, err := c.nestedUser(w.User)
	if err != nil {
		return SuperAdmin{}, err
	}
	s := SuperAdmin{UserID: w.UserID.Int(), User: usr}
	if s.UserID == 0 {
		s.UserID = usr.ID
	}
	return s, nil
}

func (c Codec) nestedUser(raw json.RawMessage) (User, error) {
	if len(raw) == 0 {
		return User{}, core.NewMalformedField("usuario", nil)
	}
	usr, err := c.Decode(raw)
	if err != nil {
		var mErr *core.MalformedRecordError
		if errors.As(err, &mErr) {
			field := "usuario"
			if mErr.Field != "" {
				field += "." + mErr.Field
			}
			return User{}, core.NewMalformedField(field, mErr.Err)
		}
		return User{}, err
	}
	return usr, nil
}

func NewController(tr resource.Transport, assetBase string, logger core.Logger) *Controller {
	return resource.NewController(resource.Options[User, Draft]{
		Name:      "users",
		Endpoints: Endpoints,
		Codec:     Codec{AssetBase: assetBase},
		Transport: tr,
		Validate:  (*Draft).Validate,
		Logger:    logger,
	})
}

func NewAdminLookup(tr resource.Transport, assetBase string, logger core.Logger) *AdminController {
	return resource.NewLookup("admins", AdminsPath, Codec{AssetBase: assetBase}.DecodeAdmin, tr, logger)
}

func NewSuperAdminLookup(tr resource.Transport, assetBase string, logger core.Logger) *SuperAdminController {
	return resource.NewLookup("superadmins", SuperAdminsPath, Codec{AssetBase: assetBase}.DecodeSuperAdmin, tr, logger)
}

// CI search needs at least this many digits before it narrows the list.
const ciMinDigits = 7

// ByCI matches users whose CI contains the digits of query.
func ByCI(query string) resource.Filter[User] {
	return resource.MinDigits(query, ciMinDigits, func(u User) string { return u.CI })
}

// AdminByCI is the admin picker search of the unit form.
func AdminByCI(query string) resource.Filter[Admin] {
	return resource.MinDigits(query, ciMinDigits, func(a Admin) string { return a.User.CI })
}

// Search is a text search over names, username and email.
func Search(query string) resource.Filter[User] {
	return resource.Contains(query,
		func(u User) string { return u.FullName() },
		func(u User) string { return u.Username },
		func(u User) string { return u.Email },
	)
}

// HasRole keeps the users of one role.
func HasRole(roleID int) resource.Filter[User] {
	return resource.Where(func(u User) bool { return u.Role.ID == roleID })
}
