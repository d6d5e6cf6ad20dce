package echoapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core/user"
)

func Test_login(t *testing.T) {
	s, db := setup(t)
	student, _ := user.RoleByID(user.RoleStudent)
	_, err := db.CreateAccount(user.User{CI: "1", Username: "dormido", Email: "d@test.bo", Role: student, Active: false}, "secreto123")
	require.NoError(t, err)

	runHTTPTests(t, s, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/user/auth/login/",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": ["this field is required"], "password": ["this field is required"]}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/user/auth/login/",
			body:     []byte(`{"username": "root", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/user/auth/login/",
			body:     []byte(`{"username": "dormido", "password": "secreto123"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/user/auth/login/", []byte(`{"username": "ROOT", "password": "`+rootPassword+`"}`))
		s.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res struct {
			Token string `json:"token"`
			User  struct {
				Username string    `json:"username"`
				Role     user.Role `json:"rol"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "root", res.User.Username)
		assert.Equal(t, "Superadmin", res.User.Role.Name)
	})
}

func Test_auth(t *testing.T) {
	s, db := setup(t)
	student, _ := user.RoleByID(user.RoleStudent)
	acc, err := db.CreateAccount(user.User{CI: "1", Username: "alumno", Email: "a@test.bo", Role: student, Active: true}, "secreto123")
	require.NoError(t, err)

	get := func(path, token string) *http.Request {
		req, _ := newAuthRequest(http.MethodGet, path, token)
		return req
	}
	bearer := get("/institucion/listar-colegios/", "")
	bearer.Header.Set("Authorization", "Bearer "+rootToken(t, s, db))

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
	}{
		{name: "no token", req: get("/institucion/listar-colegios/", ""), wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", req: bearer, wantCode: http.StatusUnauthorized},
		{name: "bad token", req: get("/institucion/listar-colegios/", "abc.def.ghi"), wantCode: http.StatusUnauthorized},
		{name: "not staff", req: get("/user/auth/listar-usuarios/", getToken(t, s, acc.User)), wantCode: http.StatusForbidden},
		{name: "staff", req: get("/user/auth/listar-usuarios/", rootToken(t, s, db)), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	t.Run("missing token body", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/academico/listar-cursos/")
		s.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})
}

func Test_userCRUD(t *testing.T) {
	s, db := setup(t)
	token := rootToken(t, s, db)

	fields := map[string]string{
		"ci": "1234567", "nombre": "Ana", "apellido": "Rojas", "email": "Ana@Test.bo",
		"username": "ana", "rol": "1", "estado": "true", "password": "secreto123",
	}

	var created struct {
		Message string    `json:"mensaje"`
		User    user.User `json:"usuario"`
	}
	t.Run("register", func(t *testing.T) {
		req, rec := newFormRequest(http.MethodPost, "/user/auth/register/", token, fields, map[string]string{"foto": "ana.png"})
		s.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

		assert.Equal(t, "Usuario creado", created.Message)
		assert.Equal(t, "ana@test.bo", created.User.Email)
		assert.Equal(t, user.Role{ID: user.RoleAdmin, Name: "Admin"}, created.User.Role)
		assert.True(t, created.User.IsStaff)
		assert.Regexp(t, `^/media/fotos/.+\.png$`, created.User.PhotoURL)
		assert.Len(t, db.Admins(), 1)
	})

	t.Run("duplicated ci", func(t *testing.T) {
		dup := map[string]string{}
		for k, v := range fields {
			dup[k] = v
		}
		dup["username"], dup["email"] = "otra", "otra@test.bo"
		req, rec := newFormRequest(http.MethodPost, "/user/auth/register/", token, dup, nil)
		s.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"ci": ["ya existe"]}`)}, rec)
	})

	t.Run("password required on register", func(t *testing.T) {
		req, rec := newFormRequest(http.MethodPost, "/user/auth/register/", token, map[string]string{
			"ci": "7654321", "nombre": "Eva", "apellido": "Paz", "email": "eva@test.bo", "rol": "2",
		}, nil)
		s.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"password": ["this field is required"]}`)}, rec)
	})

	t.Run("update keeps password", func(t *testing.T) {
		upd := map[string]string{"ci": "1234567", "nombre": "Ana María", "apellido": "Rojas", "email": "ana@test.bo", "rol": "1", "estado": "false"}
		req, rec := newFormRequest(http.MethodPut, "/user/auth/editar-usuario/2/", token, upd, nil)
		s.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		acc, err := db.Accounts.Get(created.User.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana María", acc.User.Name)
		assert.Equal(t, "ana", acc.User.Username)
		assert.False(t, acc.User.Active)
		assert.Equal(t, created.User.PhotoURL, acc.User.PhotoURL)
		assert.NoError(t, acc.CheckPassword("secreto123"))
	})

	runHTTPTests(t, s, []httpTest{
		{name: "delete self", method: http.MethodDelete, path: "/user/auth/eliminar-usuario/1/", token: token, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/user/auth/eliminar-usuario/2/", token: token, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: "/user/auth/eliminar-usuario/2/", token: token, wantCode: http.StatusNotFound},
		{name: "update missing", method: http.MethodPut, path: "/user/auth/editar-usuario/2/", token: token, body: []byte(`{}`), wantCode: http.StatusNotFound},
	})
}

func Test_userLookups(t *testing.T) {
	s, db := setup(t)
	token := rootToken(t, s, db)
	tutor, _ := user.RoleByID(user.RoleTutor)
	_, err := db.CreateAccount(user.User{CI: "2", Username: "tutor", Email: "t@test.bo", Role: tutor, Active: true}, "secreto123")
	require.NoError(t, err)

	runHTTPTests(t, s, []httpTest{
		{name: "no admins", method: http.MethodGet, path: "/user/auth/listar-admins/", token: token, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "bad ordering", method: http.MethodGet, path: "/user/auth/listar-usuarios/?ordering=zodiaco", token: token, wantCode: http.StatusBadRequest},
	})

	req, rec := newAuthRequest(http.MethodGet, "/user/auth/listar-superadmins/", token)
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var supers []user.SuperAdmin
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &supers))
	require.Len(t, supers, 1)
	assert.Equal(t, rootUsername, supers[0].User.Username)
}
