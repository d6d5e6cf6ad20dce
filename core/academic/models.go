package academic

import (
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
)

var validate, translator = core.NewValidator()

// SubjectCourse assigns a subject (materia) to a course.
type SubjectCourse struct {
	ID        int `json:"id"`
	SubjectID int `json:"materia"`
	CourseID  int `json:"curso"`
}

func (sc SubjectCourse) Identity() int { return sc.ID }

type Draft struct {
	ID        int `json:"id"`
	SubjectID int `json:"materia" validate:"required"`
	CourseID  int `json:"curso" validate:"required"`
}

func (d Draft) Identity() int { return d.ID }

func (d *Draft) Validate() error {
	return core.ValidateStruct(validate, translator, d)
}

func Edit(sc SubjectCourse) Draft {
	return Draft{ID: sc.ID, SubjectID: sc.SubjectID, CourseID: sc.CourseID}
}

type Subject struct {
	ID   int    `json:"id"`
	Name string `json:"nombre"`
}

func (s Subject) Identity() int { return s.ID }

// Course is identified by its id or, when the backend omits it, by its numeric parallel.
type Course struct {
	ID       int    `json:"id"`
	Parallel string `json:"paralelo"`
	Name     string `json:"nombre"`
}

func (c Course) Identity() int { return c.ID }

// Labels resolves the subject and course names of an assignment, "-" when a reference dangles.
func Labels(sc SubjectCourse, subjects map[int]Subject, courses map[int]Course) (subject, course string) {
	subject = resource.Label(subjects, sc.SubjectID, func(s Subject) string { return s.Name }, "-")
	course = resource.Label(courses, sc.CourseID, func(c Course) string { return c.Name }, "-")
	return subject, course
}
