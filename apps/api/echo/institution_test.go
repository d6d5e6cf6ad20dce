package echoapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core/infra"
	"github.com/trezcool/masomo-admin/core/school"
)

func Test_schools(t *testing.T) {
	s, db := setup(t)
	token := rootToken(t, s, db)

	runHTTPTests(t, s, []httpTest{
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/institucion/crear/",
			body:     []byte(`{"nombre": "San Andrés", "direccion": "Av. Busch 123", "telefono": "3344556"}`),
			token:    token,
			wantCode: http.StatusCreated,
			wantData: []byte(`{"id": 1, "nombre": "San Andrés", "direccion": "Av. Busch 123", "telefono": "3344556",
				"email": null, "sitio_web": null, "logo": "", "usuario_id": 0}`),
		},
		{
			name:     "update keeps omitted phone",
			method:   http.MethodPut,
			path:     "/institucion/editar/1/",
			body:     []byte(`{"nombre": "B", "direccion": "D"}`),
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"id": 1, "nombre": "B", "direccion": "D", "telefono": "3344556",
				"email": null, "sitio_web": null, "logo": "", "usuario_id": 0}`),
		},
		{
			name:     "blank fields",
			method:   http.MethodPost,
			path:     "/institucion/crear/",
			body:     []byte(`{"nombre": "  "}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"nombre": ["this field cannot be blank"], "direccion": ["this field cannot be blank"]}`),
		},
		{
			name:     "unknown owner",
			method:   http.MethodPut,
			path:     "/institucion/editar/1/",
			body:     []byte(`{"nombre": "San Andrés", "direccion": "Av. Busch 123", "usuario_id": 99}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"usuario_id": ["objeto no existe"]}`),
		},
		{
			name:     "update missing",
			method:   http.MethodPut,
			path:     "/institucion/editar/9/",
			body:     []byte(`{}`),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     "/institucion/crear/",
			body:     []byte(`{"nombre": 3`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("logo upload", func(t *testing.T) {
		req, rec := newFormRequest(http.MethodPut, "/institucion/editar/1/", token,
			map[string]string{"nombre": "San Andrés", "direccion": "Av. Busch 123"},
			map[string]string{"logo": "escudo.png"})
		s.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got school.School
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, strings.HasPrefix(got.LogoURL, "/media/logos/"))
		assert.Equal(t, "San Andrés", got.Name)
		assert.Equal(t, "3344556", got.Phone) // not sent again

		req, rec = newAuthRequest(http.MethodGet, got.LogoURL, "")
		s.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "PNG", rec.Body.String())
	})
}

func Test_units(t *testing.T) {
	s, db := setup(t)
	token := rootToken(t, s, db)
	db.Schools.Create(school.School{Name: "San Andrés", Address: "Av. Busch 123"})

	unit := `{"nombre": "U.E. San Andrés", "codigo_sie": "80730123", "turno": "MAÑANA", "nivel": "Primaria", "colegio": 1}`
	runHTTPTests(t, s, []httpTest{
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/institucion/nueva-unidad-educativa/",
			body:     []byte(unit),
			token:    token,
			wantCode: http.StatusCreated,
			wantData: []byte(`{"id": 1, "nombre": "U.E. San Andrés", "codigo_sie": "80730123", "turno": "MAÑANA", "nivel": "Primaria",
				"colegio": 1, "administrador_id": 0, "direccion": null, "telefono": null}`),
		},
		{
			name:     "duplicated sie code",
			method:   http.MethodPost,
			path:     "/institucion/nueva-unidad-educativa/",
			body:     []byte(unit),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"codigo_sie": ["ya existe"]}`),
		},
		{
			name:     "update sets phone",
			method:   http.MethodPut,
			path:     "/institucion/editar-unidad-educativa/1/",
			body:     []byte(strings.Replace(unit, "}", `, "telefono": "555", "direccion": "Calle 1"}`, 1)),
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"id": 1, "nombre": "U.E. San Andrés", "codigo_sie": "80730123", "turno": "MAÑANA", "nivel": "Primaria",
				"colegio": 1, "administrador_id": 0, "direccion": "Calle 1", "telefono": "555"}`),
		},
		{
			name:     "same unit keeps its code",
			method:   http.MethodPut,
			path:     "/institucion/editar-unidad-educativa/1/",
			body:     []byte(strings.Replace(unit, "MAÑANA", "TARDE", 1)),
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown school",
			method:   http.MethodPost,
			path:     "/institucion/nueva-unidad-educativa/",
			body:     []byte(`{"nombre": "X", "codigo_sie": "1", "turno": "NOCHE", "colegio": 7}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"colegio": ["objeto no existe"]}`),
		},
		{
			name:     "admin must be an admin",
			method:   http.MethodPost,
			path:     "/institucion/nueva-unidad-educativa/",
			body:     []byte(`{"nombre": "X", "codigo_sie": "1", "turno": "NOCHE", "colegio": 1, "administrador_id": 1}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"administrador_id": ["objeto no existe"]}`),
		},
		{
			name:     "missing school",
			method:   http.MethodPost,
			path:     "/institucion/nueva-unidad-educativa/",
			body:     []byte(`{"nombre": "X", "codigo_sie": "1", "turno": "NOCHE"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"colegio": ["this field is required"]}`),
		},
	})

	got, err := db.Units.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "TARDE", got.Shift)
	assert.Equal(t, null.StringFrom("555"), got.Phone, "omitted on the last update")
	assert.Equal(t, null.StringFrom("Calle 1"), got.Address)

	t.Run("empty value clears", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/institucion/editar-unidad-educativa/1/", token,
			[]byte(strings.Replace(unit, "}", `, "telefono": ""}`, 1)))
		s.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got, err := db.Units.Get(1)
		require.NoError(t, err)
		assert.False(t, got.Phone.Valid)
		assert.Equal(t, null.StringFrom("Calle 1"), got.Address)
	})
}

func Test_modulesAndClassrooms(t *testing.T) {
	s, db := setup(t)
	token := rootToken(t, s, db)
	db.Schools.Create(school.School{Name: "San Andrés", Address: "Av. Busch 123"})

	runHTTPTests(t, s, []httpTest{
		{
			name:     "create module",
			method:   http.MethodPost,
			path:     "/institucion/crear-modulo/",
			body:     []byte(`{"nombre": "Bloque A", "cantidad_aulas": 2, "colegio_fk": 1}`),
			token:    token,
			wantCode: http.StatusCreated,
			wantData: []byte(`{"id": 1, "nombre": "Bloque A", "cantidad_aulas": 2, "descripcion": null, "colegio_fk": 1}`),
		},
		{
			name:     "create classroom",
			method:   http.MethodPost,
			path:     "/institucion/nuevo-aula/",
			body:     []byte(`{"modulo": 1, "nombre": "A-101", "capacidad": 30, "estado": true, "tipo": "AUL", "piso": 0}`),
			token:    token,
			wantCode: http.StatusCreated,
			wantData: []byte(`{"id": 1, "modulo": 1, "nombre": "A-101", "capacidad": 30, "estado": true, "tipo": "AUL", "equipamiento": null, "piso": 0}`),
		},
		{
			name:     "second classroom",
			method:   http.MethodPost,
			path:     "/institucion/nuevo-aula/",
			body:     []byte(`{"modulo": 1, "nombre": "A-102", "capacidad": 45, "estado": false, "tipo": "LAB", "piso": 1}`),
			token:    token,
			wantCode: http.StatusCreated,
		},
		{
			name:     "module description",
			method:   http.MethodPut,
			path:     "/institucion/editar-modulo/1/",
			body:     []byte(`{"nombre": "Bloque A", "cantidad_aulas": 2, "descripcion": "Patio", "colegio_fk": 1}`),
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "module update keeps omitted description",
			method:   http.MethodPut,
			path:     "/institucion/editar-modulo/1/",
			body:     []byte(`{"nombre": "Bloque B", "cantidad_aulas": 3, "colegio_fk": 1}`),
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"id": 1, "nombre": "Bloque B", "cantidad_aulas": 3, "descripcion": "Patio", "colegio_fk": 1}`),
		},
		{
			name:     "classroom equipment",
			method:   http.MethodPut,
			path:     "/institucion/editar-aula/2/",
			body:     []byte(`{"modulo": 1, "nombre": "A-102", "capacidad": 45, "estado": false, "tipo": "LAB", "equipamiento": "Microscopios", "piso": 1}`),
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "classroom update keeps omitted equipment",
			method:   http.MethodPut,
			path:     "/institucion/editar-aula/2/",
			body:     []byte(`{"modulo": 1, "nombre": "A-102", "capacidad": 40, "estado": false, "tipo": "LAB", "piso": 1}`),
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"id": 2, "modulo": 1, "nombre": "A-102", "capacidad": 40, "estado": false, "tipo": "LAB", "equipamiento": "Microscopios", "piso": 1}`),
		},
		{
			name:     "bad classroom type",
			method:   http.MethodPost,
			path:     "/institucion/nuevo-aula/",
			body:     []byte(`{"modulo": 1, "nombre": "A-103", "capacidad": 10, "tipo": "XYZ"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown module",
			method:   http.MethodPost,
			path:     "/institucion/nuevo-aula/",
			body:     []byte(`{"modulo": 5, "nombre": "A-103", "capacidad": 10, "tipo": "AUL"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"modulo": ["objeto no existe"]}`),
		},
	})

	t.Run("ordering", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/institucion/listar-aulas/?ordering=-capacidad", token)
		s.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var rooms []infra.Classroom
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
		require.Len(t, rooms, 2)
		assert.Equal(t, []string{"A-102", "A-101"}, []string{rooms[0].Name, rooms[1].Name})
	})

	t.Run("deleting a module drops its classrooms", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/institucion/eliminar-modulo/1/", token)
		s.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, 0, db.Classrooms.Len())
	})
}

func Test_subjectCourses(t *testing.T) {
	s, db := setup(t)
	token := rootToken(t, s, db)

	runHTTPTests(t, s, []httpTest{
		{
			name:     "courses lookup",
			method:   http.MethodGet,
			path:     "/academico/listar-cursos/",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`[{"id": 1, "paralelo": "A", "nombre": "1ro A"}, {"id": 2, "paralelo": "B", "nombre": "1ro B"},
				{"id": 3, "paralelo": "A", "nombre": "2do A"}]`),
		},
		{
			name:     "assign",
			method:   http.MethodPost,
			path:     "/academico/nuevo-materia-curso/",
			body:     []byte(`{"materia": 1, "curso": 2}`),
			token:    token,
			wantCode: http.StatusCreated,
			wantData: []byte(`{"id": 1, "materia": 1, "curso": 2}`),
		},
		{
			name:     "assign twice",
			method:   http.MethodPost,
			path:     "/academico/nuevo-materia-curso/",
			body:     []byte(`{"materia": 1, "curso": 2}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"non_field_errors": ["la materia ya está asignada a este curso"]}`),
		},
		{
			name:     "unknown course",
			method:   http.MethodPut,
			path:     "/academico/editar-materia-curso/1/",
			body:     []byte(`{"materia": 1, "curso": 9}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"curso": ["objeto no existe"]}`),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/academico/eliminar-materia-curso/1/",
			token:    token,
			wantCode: http.StatusNoContent,
		},
	})
}
