package inmemdb

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/academic"
	"github.com/trezcool/masomo-admin/core/user"
)

var (
	seedSubjects = []string{"Matemáticas", "Física", "Química", "Lenguaje", "Historia"}
	seedCourses  = []academic.Course{
		{Parallel: "A", Name: "1ro A"},
		{Parallel: "B", Name: "1ro B"},
		{Parallel: "A", Name: "2do A"},
	}
)

// Seed fills the lookup tables and creates the superadmin the first login needs.
// An empty password skips the superadmin.
func (db *DB) Seed(username, pwd string) error {
	if db.Subjects.Len() == 0 {
		for _, name := range seedSubjects {
			db.Subjects.Create(academic.Subject{Name: name})
		}
	}
	if db.Courses.Len() == 0 {
		for _, c := range seedCourses {
			db.Courses.Create(c)
		}
	}
	if username == "" || pwd == "" {
		return nil
	}
	if _, err := db.AccountByUsernameOrEmail(username); err == nil {
		return nil
	}

	role, _ := user.RoleByID(user.RoleSuperadmin)
	_, err := db.CreateAccount(user.User{
		CI:       "0000000",
		Name:     "Super",
		Surname:  "Admin",
		Email:    username + "@localhost",
		Username: username,
		Role:     role,
		Active:   true,
	}, pwd)
	return errors.Wrap(err, "creating superadmin")
}
