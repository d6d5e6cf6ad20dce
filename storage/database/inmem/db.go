package inmemdb

import (
	"fmt"
	"path"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-admin/core/academic"
	"github.com/trezcool/masomo-admin/core/infra"
	"github.com/trezcool/masomo-admin/core/school"
	"github.com/trezcool/masomo-admin/core/unit"
)

// MediaPrefix is the URL path uploaded files are served under.
const MediaPrefix = "/media/"

// DB holds every table of the development backend.
type DB struct {
	Schools        *Table[school.School]
	Units          *Table[unit.Unit]
	Modules        *Table[infra.Module]
	Classrooms     *Table[infra.Classroom]
	Accounts       *Table[Account]
	Subjects       *Table[academic.Subject]
	Courses        *Table[academic.Course]
	SubjectCourses *Table[academic.SubjectCourse]

	media struct {
		sync.RWMutex
		files map[string][]byte
	}
}

func Open() (*DB, error) {
	db := &DB{
		Schools:        NewTable(func(s school.School, id int) school.School { s.ID = id; return s }),
		Units:          NewTable(func(u unit.Unit, id int) unit.Unit { u.ID = id; return u }),
		Modules:        NewTable(func(m infra.Module, id int) infra.Module { m.ID = id; return m }),
		Classrooms:     NewTable(func(c infra.Classroom, id int) infra.Classroom { c.ID = id; return c }),
		Accounts:       NewTable(func(a Account, id int) Account { a.User.ID = id; return a }),
		Subjects:       NewTable(func(s academic.Subject, id int) academic.Subject { s.ID = id; return s }),
		Courses:        NewTable(func(c academic.Course, id int) academic.Course { c.ID = id; return c }),
		SubjectCourses: NewTable(func(sc academic.SubjectCourse, id int) academic.SubjectCourse { sc.ID = id; return sc }),
	}
	db.media.files = make(map[string][]byte)
	return db, nil
}

// SaveMedia stores an uploaded file under a unique name and returns its relative URL.
func (db *DB) SaveMedia(dir, filename string, content []byte) string {
	name := fmt.Sprintf("%s/%s%s", dir, uuid.New().String(), path.Ext(filename))

	db.media.Lock()
	defer db.media.Unlock()
	db.media.files[name] = content
	return MediaPrefix + name
}

func (db *DB) Media(name string) ([]byte, bool) {
	db.media.RLock()
	defer db.media.RUnlock()
	content, ok := db.media.files[name]
	return content, ok
}
