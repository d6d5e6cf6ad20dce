package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core/academic"
	"github.com/trezcool/masomo-admin/storage/database/inmem"
)

func (s *server) registerAcademicAPI(g *echo.Group) {
	db := s.opts.DB

	assignments := crud[academic.SubjectCourse, subjectCourseRequest, *subjectCourseRequest]{s: s, table: db.SubjectCourses}
	assignments.register(g, crudPaths{
		list:   "/listar-materias-cursos",
		create: "/nuevo-materia-curso",
		update: "/editar-materia-curso",
		delete: "/eliminar-materia-curso",
	})

	g.GET("/listar-materias", lookup(db.Subjects.All))
	g.GET("/listar-cursos", lookup(db.Courses.All))
}

type subjectCourseRequest struct {
	SubjectID int `json:"materia" validate:"required"`
	CourseID  int `json:"curso" validate:"required"`
}

func (r *subjectCourseRequest) check(db *inmemdb.DB, id int) error {
	if !db.Subjects.Exists(r.SubjectID) {
		return fieldError("materia", msgNoObject)
	}
	if !db.Courses.Exists(r.CourseID) {
		return fieldError("curso", msgNoObject)
	}
	_, taken := db.SubjectCourses.Find(func(sc academic.SubjectCourse) bool {
		return sc.ID != id && sc.SubjectID == r.SubjectID && sc.CourseID == r.CourseID
	})
	if taken {
		return fieldError("non_field_errors", "la materia ya está asignada a este curso")
	}
	return nil
}

func (r *subjectCourseRequest) apply(sc academic.SubjectCourse) academic.SubjectCourse {
	sc.SubjectID = r.SubjectID
	sc.CourseID = r.CourseID
	return sc
}
