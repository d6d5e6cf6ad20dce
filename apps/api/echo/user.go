package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/user"
	"github.com/trezcool/masomo-admin/storage/database/inmem"
)

const msgRequired = "this field is required"

func (s *server) registerUserAPI(g *echo.Group, jwt, staff echo.MiddlewareFunc) {
	db := s.opts.DB

	// un-authed endpoints
	g.POST("/login", s.login)

	// authed endpoints
	ag := g.Group("", jwt, staff)
	ag.GET("/listar-usuarios", lookup(db.Users))
	ag.GET("/listar-admins", lookup(db.Admins))
	ag.GET("/listar-superadmins", lookup(db.SuperAdmins))
	ag.POST("/register", s.createUser)
	ag.PUT("/editar-usuario/:id", s.updateUser)
	ag.DELETE("/eliminar-usuario/:id", s.destroyUser)
}

// Handlers

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s); err != nil {
		return err
	}

	acc, err := s.authenticate(data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := s.GenerateToken(s.userClaims(acc.User))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: acc.User})
}

func (s *server) createUser(ctx echo.Context) error {
	data, err := s.bindUser(ctx, 0)
	if err != nil {
		return err
	}
	if data.Password == "" {
		return fieldError("password", msgRequired)
	}

	acc, err := s.opts.DB.CreateAccount(data.apply(user.User{}), data.Password)
	if err != nil {
		return uniquenessError(err)
	}
	return ctx.JSON(http.StatusCreated, UserResponse{Message: "Usuario creado", User: acc.User})
}

func (s *server) updateUser(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	acc, err := s.opts.DB.Accounts.Get(id)
	if err != nil {
		return errHttpNotFound
	}
	data, err := s.bindUser(ctx, id)
	if err != nil {
		return err
	}

	acc.User = data.apply(acc.User)
	acc.User.IsStaff = user.IsStaffRole(acc.User.Role.ID)
	if err := s.opts.DB.CheckUniqueness(acc.User); err != nil {
		return uniquenessError(err)
	}
	if data.Password != "" {
		if err := acc.SetPassword(data.Password); err != nil {
			return errors.Wrap(err, "setting password")
		}
	}
	if acc, err = s.opts.DB.Accounts.Update(acc); err != nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, UserResponse{Message: "Usuario actualizado", User: acc.User})
}

func (s *server) destroyUser(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if id == ctxUsr.ID {
		return errHttpForbidden
	}

	if err := s.opts.DB.Accounts.Delete(id); err != nil {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) bindUser(ctx echo.Context, id int) (*UserRequest, error) {
	var data UserRequest
	if err := ctx.Bind(&data); err != nil {
		return nil, errors.Wrap(err, "binding to UserRequest")
	}
	if err := data.Validate(s); err != nil {
		return nil, err
	}
	photo, err := s.saveUpload(ctx, "foto", "fotos")
	if err != nil {
		return nil, err
	}
	data.photo = photo
	return &data, nil
}

func uniquenessError(err error) error {
	switch errors.Cause(err) {
	case inmemdb.ErrCIExists:
		return fieldError("ci", msgExists)
	case inmemdb.ErrUsernameExists:
		return fieldError("username", msgExists)
	case inmemdb.ErrEmailExists:
		return fieldError("email", msgExists)
	}
	return errors.Wrap(err, "saving user")
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	// UserRequest is the multipart registration/edition form.
	UserRequest struct {
		CI        string `json:"ci" form:"ci" validate:"notblank"`
		Name      string `json:"nombre" form:"nombre" validate:"notblank"`
		Surname   string `json:"apellido" form:"apellido" validate:"notblank"`
		Email     string `json:"email" form:"email" validate:"required,strictemail"`
		Username  string `json:"username" form:"username" validate:"omitempty,min=3"`
		BirthDate string `json:"fecha_nacimiento" form:"fecha_nacimiento" validate:"omitempty,datetime=2006-01-02"`
		Phone     string `json:"telefono" form:"telefono"`
		RoleID    int    `json:"rol" form:"rol" validate:"required,min=1,max=5"`
		Active    bool   `json:"estado" form:"estado"`
		Password  string `json:"password" form:"password"`
		photo     string
	}

	UserResponse struct {
		Message string    `json:"mensaje"`
		User    user.User `json:"usuario"`
	}
)

func (lr *LoginRequest) Validate(s *server) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.ValidateStruct(s.validate, s.translator, lr)
}

func (ur *UserRequest) Validate(s *server) error {
	ur.CI = core.CleanString(ur.CI)
	ur.Email = core.CleanString(ur.Email, true /* lower */)
	ur.Username = core.CleanString(ur.Username, true /* lower */)
	return core.ValidateStruct(s.validate, s.translator, ur)
}

func (ur *UserRequest) apply(u user.User) user.User {
	u.CI = ur.CI
	u.Name = ur.Name
	u.Surname = ur.Surname
	u.Email = ur.Email
	if ur.Username != "" {
		u.Username = ur.Username
	}
	u.BirthDate = null.NewString(ur.BirthDate, ur.BirthDate != "")
	u.Phone = null.NewString(ur.Phone, ur.Phone != "")
	u.Role, _ = user.RoleByID(ur.RoleID)
	u.Active = ur.Active
	if ur.photo != "" {
		u.PhotoURL = ur.photo
	}
	return u
}
