package academic

import (
	"encoding/json"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
)

var Endpoints = resource.Endpoints{
	List:   "/academico/listar-materias-cursos/",
	Create: "/academico/nuevo-materia-curso/",
	Update: "/academico/editar-materia-curso/%d/",
	Delete: "/academico/eliminar-materia-curso/%d/",
}

const (
	SubjectsPath = "/academico/listar-materias/"
	CoursesPath  = "/academico/listar-cursos/"
)

type (
	Controller        = resource.Controller[SubjectCourse, Draft]
	SubjectController = resource.Controller[Subject, resource.NoDraft]
	CourseController  = resource.Controller[Course, resource.NoDraft]
)

type Codec struct{}

var _ resource.Codec[SubjectCourse, Draft] = Codec{}

func (Codec) Decode(raw json.RawMessage) (SubjectCourse, error) {
	var w struct {
		ID      resource.WireID  `json:"id"`
		Subject resource.WireRef `json:"materia"`
		Course  resource.WireRef `json:"curso"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return SubjectCourse{}, core.NewMalformedField("", err)
	}
	if w.Subject == 0 {
		return SubjectCourse{}, core.NewMalformedField("materia", nil)
	}
	return SubjectCourse{ID: w.ID.Int(), SubjectID: w.Subject.Int(), CourseID: w.Course.Int()}, nil
}

func (Codec) Encode(d Draft) (*resource.Payload, error) {
	return resource.NewPayload().Set("materia", d.SubjectID).Set("curso", d.CourseID), nil
}

func (Codec) Merge(sc SubjectCourse, d Draft) SubjectCourse {
	return SubjectCourse{ID: d.ID, SubjectID: d.SubjectID, CourseID: d.CourseID}
}

func DecodeSubject(raw json.RawMessage) (Subject, error) {
	var w struct {
		ID   resource.WireID `json:"id"`
		Name null.String     `json:"nombre"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return Subject{}, core.NewMalformedField("", err)
	}
	if !w.Name.Valid {
		return Subject{}, core.NewMalformedField("nombre", nil)
	}
	return Subject{ID: w.ID.Int(), Name: w.Name.String}, nil
}

func DecodeCourse(raw json.RawMessage) (Course, error) {
	var w struct {
		ID       resource.WireID `json:"id"`
		Parallel json.RawMessage `json:"paralelo"`
		Name     null.String     `json:"nombre"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return Course{}, core.NewMalformedField("", err)
	}
	c := Course{ID: w.ID.Int(), Name: w.Name.String}
	if len(w.Parallel) > 0 {
		var par resource.WireID
		if err := json.Unmarshal(w.Parallel, &par); err == nil {
			if c.ID == 0 {
				c.ID = par.Int()
			}
		} else if c.ID == 0 {
			return Course{}, core.NewMalformedField("paralelo", err)
		}
		var s string
		if json.Unmarshal(w.Parallel, &s) != nil {
			s = string(w.Parallel)
		}
		c.Parallel = s
	}
	return c, nil
}

func NewController(tr resource.Transport, logger core.Logger) *Controller {
	return resource.NewController(resource.Options[SubjectCourse, Draft]{
		Name:      "subject-courses",
		Endpoints: Endpoints,
		Codec:     Codec{},
		Transport: tr,
		Validate:  (*Draft).Validate,
		Logger:    logger,
	})
}

func NewSubjectLookup(tr resource.Transport, logger core.Logger) *SubjectController {
	return resource.NewLookup("subjects", SubjectsPath, DecodeSubject, tr, logger)
}

func NewCourseLookup(tr resource.Transport, logger core.Logger) *CourseController {
	return resource.NewLookup("courses", CoursesPath, DecodeCourse, tr, logger)
}
