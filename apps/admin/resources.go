package main

import (
	"context"
	"flag"
	"io"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/academic"
	"github.com/trezcool/masomo-admin/core/infra"
	"github.com/trezcool/masomo-admin/core/resource"
	"github.com/trezcool/masomo-admin/core/school"
	"github.com/trezcool/masomo-admin/core/unit"
	"github.com/trezcool/masomo-admin/core/user"
	exportsvc "github.com/trezcool/masomo-admin/services/export"
)

// viewOptions are the flags shared by list and export.
type viewOptions struct {
	resource string
	sort     string
	desc     bool
	query    string
	ci       string
	module   int
	role     string
}

func (o *viewOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&o.resource, "resource", "", "The resource to show.")
	fs.StringVar(&o.sort, "sort", "", "The field to sort by; a leading '-' sorts descending.")
	fs.BoolVar(&o.desc, "desc", false, "Sort descending.")
	fs.StringVar(&o.query, "q", "", "Keep the records containing this text.")
	fs.StringVar(&o.ci, "ci", "", "Keep the users whose CI contains these digits (7 digits at least).")
	fs.IntVar(&o.module, "module", 0, "Keep the classrooms of this module.")
	fs.StringVar(&o.role, "role", "", "Keep the users of this role (id or name).")
}

func (o viewOptions) ordering() core.Ordering {
	ord := core.ParseOrdering(o.sort)
	if o.desc && ord.Field != "" {
		ord.Ascending = false
	}
	return ord
}

// table is a rendered view.
type table interface {
	Headers() []string
	Records() [][]string
	WriteXLSX(w io.Writer) error
}

type sheet[T any] struct {
	exportsvc.Sheet[T]
}

func (s sheet[T]) WriteXLSX(w io.Writer) error {
	return exportsvc.WriteXLSX(w, s.Sheet)
}

type resourceCmd interface {
	load(ctx context.Context) error
	readOnly() bool
	discard()
	view(opts viewOptions) (table, error)
	save(ctx context.Context, id int, fields, files map[string]string) (int, error)
	remove(ctx context.Context, id int, confirm resource.ConfirmFunc) error
}

type loader interface {
	Name() string
	Load(ctx context.Context) error
}

// filterFunc builds a filter out of a flag value.
type filterFunc[T any] func(opts viewOptions) (resource.Filter[T], error)

// binding exposes one controller to the command line.
type binding[T resource.Record, D resource.Draft] struct {
	ctrl   *resource.Controller[T, D]
	deps   []loader // collections the columns join against
	logger core.Logger

	// columns is called once the collection and its deps are loaded.
	columns func() []exportsvc.Column[T]
	filters map[string]filterFunc[T] // keyed by flag name

	blank  func() D
	edit   func(T) D
	attach map[string]func(d *D, name string, content []byte) // keyed by file field

	// removeFunc replaces Controller.Remove when deleting has side effects on other collections.
	removeFunc func(ctx context.Context, id int, confirm resource.ConfirmFunc) error
}

func (b *binding[T, D]) readOnly() bool { return b.ctrl.ReadOnly() }

func (b *binding[T, D]) discard() { b.ctrl.Discard() }

// load loads the collection. Failing deps are only logged; their labels show as "-".
func (b *binding[T, D]) load(ctx context.Context) error {
	for _, dep := range b.deps {
		if err := dep.Load(ctx); err != nil {
			b.logger.Warn("loading "+dep.Name()+": "+core.Message(err), map[string]interface{}{"resource": b.ctrl.Name()})
		}
	}
	return b.ctrl.Load(ctx)
}

func (b *binding[T, D]) view(opts viewOptions) (table, error) {
	cols := b.columns()
	var filters []resource.Filter[T]

	if opts.query != "" {
		if build, ok := b.filters["q"]; ok {
			f, err := build(opts)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		} else {
			filters = append(filters, searchColumns(opts.query, cols))
		}
	}
	for name, set := range map[string]bool{"ci": opts.ci != "", "module": opts.module != 0, "role": opts.role != ""} {
		if !set {
			continue
		}
		build, ok := b.filters[name]
		if !ok {
			return nil, errors.Errorf("%s cannot be filtered with -%s", b.ctrl.Name(), name)
		}
		f, err := build(opts)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	rows, err := b.ctrl.View(opts.ordering(), filters...)
	if err != nil {
		return nil, err
	}
	return sheet[T]{exportsvc.Sheet[T]{Name: b.ctrl.Name(), Columns: cols, Rows: rows}}, nil
}

// searchColumns matches query against every rendered column.
func searchColumns[T any](query string, cols []exportsvc.Column[T]) resource.Filter[T] {
	gets := make([]func(T) string, len(cols))
	for i := range cols {
		col := cols[i]
		gets[i] = func(rec T) string { return exportsvc.Text(col.Value(rec)) }
	}
	return resource.Contains(query, gets...)
}

func (b *binding[T, D]) save(ctx context.Context, id int, fields, files map[string]string) (int, error) {
	var d D
	if id > 0 {
		current, ok := b.ctrl.Get(id)
		if !ok {
			return 0, errors.Errorf("%s #%d not found", b.ctrl.Name(), id)
		}
		d = b.edit(current)
	} else {
		d = b.blank()
	}

	if err := decodeFields(fields, &d); err != nil {
		return 0, err
	}
	for field, path := range files {
		attach, ok := b.attach[field]
		if !ok {
			return 0, errors.Errorf("%s has no file field %q", b.ctrl.Name(), field)
		}
		content, err := ioutil.ReadFile(path)
		if err != nil {
			return 0, errors.Wrapf(err, "reading %s", path)
		}
		attach(&d, filepath.Base(path), content)
	}

	saved, err := b.ctrl.Submit(ctx, d)
	if err != nil {
		return 0, err
	}
	return saved.Identity(), nil
}

func (b *binding[T, D]) remove(ctx context.Context, id int, confirm resource.ConfirmFunc) error {
	if b.removeFunc != nil {
		return b.removeFunc(ctx, id, confirm)
	}
	return b.ctrl.Remove(ctx, id, confirm)
}

func col[T any](header string, value func(T) interface{}) exportsvc.Column[T] {
	return exportsvc.Column[T]{Header: header, Value: value}
}

func noDraft() resource.NoDraft { return resource.NoDraft{} }

func newResources(tr resource.Transport, assetBase string, logger core.Logger) map[string]resourceCmd {
	if logger == nil {
		logger = core.NopLogger{}
	}
	var (
		schools     = school.NewController(tr, assetBase, logger)
		units       = unit.NewController(tr, logger)
		modules     = infra.NewModuleController(tr, logger)
		classrooms  = infra.NewClassroomController(tr, logger)
		users       = user.NewController(tr, assetBase, logger)
		admins      = user.NewAdminLookup(tr, assetBase, logger)
		superadmins = user.NewSuperAdminLookup(tr, assetBase, logger)
		assignments = academic.NewController(tr, logger)
		subjects    = academic.NewSubjectLookup(tr, logger)
		courses     = academic.NewCourseLookup(tr, logger)
	)

	schoolName := func(idx map[int]school.School, id int) string {
		return resource.Label(idx, id, func(s school.School) string { return s.Name }, "-")
	}
	userFilters := map[string]filterFunc[user.User]{
		"q":    func(o viewOptions) (resource.Filter[user.User], error) { return user.Search(o.query), nil },
		"ci":   func(o viewOptions) (resource.Filter[user.User], error) { return user.ByCI(o.ci), nil },
		"role": roleFilter,
	}
	userColumns := func() []exportsvc.Column[user.User] {
		return []exportsvc.Column[user.User]{
			col("id", func(u user.User) interface{} { return u.ID }),
			col("ci", func(u user.User) interface{} { return u.CI }),
			col("nombre", func(u user.User) interface{} { return u.FullName() }),
			col("username", func(u user.User) interface{} { return u.Username }),
			col("email", func(u user.User) interface{} { return u.Email }),
			col("rol", func(u user.User) interface{} { return u.Role.Name }),
			col("telefono", func(u user.User) interface{} { return u.Phone }),
			col("estado", func(u user.User) interface{} { return u.Active }),
			col("date_joined", func(u user.User) interface{} { return u.DateJoined }),
		}
	}

	return map[string]resourceCmd{
		"schools": &binding[school.School, school.Draft]{
			ctrl:   schools,
			logger: logger,
			columns: func() []exportsvc.Column[school.School] {
				return []exportsvc.Column[school.School]{
					col("id", func(s school.School) interface{} { return s.ID }),
					col("nombre", func(s school.School) interface{} { return s.Name }),
					col("direccion", func(s school.School) interface{} { return s.Address }),
					col("telefono", func(s school.School) interface{} { return s.Phone }),
					col("email", func(s school.School) interface{} { return s.Email }),
					col("logo", func(s school.School) interface{} { return s.LogoURL }),
				}
			},
			blank: func() school.Draft { return school.Draft{} },
			edit:  school.Edit,
			attach: map[string]func(*school.Draft, string, []byte){
				"logo": func(d *school.Draft, name string, content []byte) { d.LogoName, d.Logo = name, content },
			},
		},
		"units": &binding[unit.Unit, unit.Draft]{
			ctrl:   units,
			deps:   []loader{schools, admins},
			logger: logger,
			columns: func() []exportsvc.Column[unit.Unit] {
				schoolIdx, adminIdx := resource.Index(schools.Items()), resource.Index(admins.Items())
				return []exportsvc.Column[unit.Unit]{
					col("id", func(u unit.Unit) interface{} { return u.ID }),
					col("codigo_sie", func(u unit.Unit) interface{} { return u.CodeSIE }),
					col("nombre", func(u unit.Unit) interface{} { return u.Name }),
					col("turno", func(u unit.Unit) interface{} { return u.Shift }),
					col("nivel", func(u unit.Unit) interface{} { return u.Level }),
					col("colegio", func(u unit.Unit) interface{} { return schoolName(schoolIdx, u.SchoolID) }),
					col("administrador", func(u unit.Unit) interface{} {
						return resource.Label(adminIdx, u.AdminID, user.Admin.Label, "-")
					}),
				}
			},
			blank: func() unit.Draft { return unit.Draft{Shift: unit.ShiftMorning, Level: unit.LevelPrimary} },
			edit:  unit.Edit,
		},
		"modules": &binding[infra.Module, infra.ModuleDraft]{
			ctrl:   modules,
			deps:   []loader{schools, classrooms},
			logger: logger,
			columns: func() []exportsvc.Column[infra.Module] {
				schoolIdx, rooms := resource.Index(schools.Items()), classrooms.Items()
				return []exportsvc.Column[infra.Module]{
					col("id", func(m infra.Module) interface{} { return m.ID }),
					col("nombre", func(m infra.Module) interface{} { return m.Name }),
					col("aulas", func(m infra.Module) interface{} { return infra.Occupancy(m, rooms) }),
					col("descripcion", func(m infra.Module) interface{} { return m.Description }),
					col("colegio", func(m infra.Module) interface{} { return schoolName(schoolIdx, m.SchoolID) }),
				}
			},
			blank: func() infra.ModuleDraft { return infra.ModuleDraft{} },
			edit:  infra.EditModule,
			removeFunc: func(ctx context.Context, id int, confirm resource.ConfirmFunc) error {
				n, err := infra.CascadeModuleDelete(ctx, modules, classrooms, id, confirm)
				if err == nil && n > 0 {
					logger.Info("dropped the module's classrooms", map[string]interface{}{"module": id, "classrooms": n})
				}
				return err
			},
		},
		"classrooms": &binding[infra.Classroom, infra.ClassroomDraft]{
			ctrl:   classrooms,
			deps:   []loader{modules},
			logger: logger,
			columns: func() []exportsvc.Column[infra.Classroom] {
				moduleIdx := resource.Index(modules.Items())
				return []exportsvc.Column[infra.Classroom]{
					col("id", func(c infra.Classroom) interface{} { return c.ID }),
					col("nombre", func(c infra.Classroom) interface{} { return c.Name }),
					col("modulo", func(c infra.Classroom) interface{} { return infra.ModuleName(moduleIdx, c) }),
					col("tipo", func(c infra.Classroom) interface{} { return c.Type }),
					col("capacidad", func(c infra.Classroom) interface{} { return c.Capacity }),
					col("piso", func(c infra.Classroom) interface{} { return c.Floor }),
					col("estado", func(c infra.Classroom) interface{} { return c.Status() }),
					col("equipamiento", func(c infra.Classroom) interface{} { return c.Equipment }),
				}
			},
			filters: map[string]filterFunc[infra.Classroom]{
				"q":      func(o viewOptions) (resource.Filter[infra.Classroom], error) { return infra.Search(o.query), nil },
				"module": func(o viewOptions) (resource.Filter[infra.Classroom], error) { return infra.InModule(o.module), nil },
			},
			blank: func() infra.ClassroomDraft { return infra.NewClassroom(0) },
			edit:  infra.EditClassroom,
		},
		"users": &binding[user.User, user.Draft]{
			ctrl:    users,
			logger:  logger,
			columns: userColumns,
			filters: userFilters,
			blank:   user.NewDraft,
			edit:    user.Edit,
			attach: map[string]func(*user.Draft, string, []byte){
				"foto": func(d *user.Draft, name string, content []byte) { d.PhotoName, d.Photo = name, content },
			},
		},
		"admins": &binding[user.Admin, resource.NoDraft]{
			ctrl:   admins,
			logger: logger,
			columns: func() []exportsvc.Column[user.Admin] {
				return []exportsvc.Column[user.Admin]{
					col("usuario_id", func(a user.Admin) interface{} { return a.UserID }),
					col("ci", func(a user.Admin) interface{} { return a.User.CI }),
					col("nombre", func(a user.Admin) interface{} { return a.User.FullName() }),
					col("puesto", func(a user.Admin) interface{} { return a.Position }),
					col("estado", func(a user.Admin) interface{} { return a.Active }),
				}
			},
			filters: map[string]filterFunc[user.Admin]{
				"ci": func(o viewOptions) (resource.Filter[user.Admin], error) { return user.AdminByCI(o.ci), nil },
			},
			blank: noDraft,
			edit:  func(user.Admin) resource.NoDraft { return resource.NoDraft{} },
		},
		"superadmins": &binding[user.SuperAdmin, resource.NoDraft]{
			ctrl:   superadmins,
			logger: logger,
			columns: func() []exportsvc.Column[user.SuperAdmin] {
				return []exportsvc.Column[user.SuperAdmin]{
					col("usuario_id", func(s user.SuperAdmin) interface{} { return s.UserID }),
					col("username", func(s user.SuperAdmin) interface{} { return s.User.Username }),
					col("nombre", func(s user.SuperAdmin) interface{} { return s.User.FullName() }),
					col("email", func(s user.SuperAdmin) interface{} { return s.User.Email }),
				}
			},
			blank: noDraft,
			edit:  func(user.SuperAdmin) resource.NoDraft { return resource.NoDraft{} },
		},
		"subject-courses": &binding[academic.SubjectCourse, academic.Draft]{
			ctrl:   assignments,
			deps:   []loader{subjects, courses},
			logger: logger,
			columns: func() []exportsvc.Column[academic.SubjectCourse] {
				subjectIdx, courseIdx := resource.Index(subjects.Items()), resource.Index(courses.Items())
				return []exportsvc.Column[academic.SubjectCourse]{
					col("id", func(sc academic.SubjectCourse) interface{} { return sc.ID }),
					col("materia", func(sc academic.SubjectCourse) interface{} {
						s, _ := academic.Labels(sc, subjectIdx, courseIdx)
						return s
					}),
					col("curso", func(sc academic.SubjectCourse) interface{} {
						_, c := academic.Labels(sc, subjectIdx, courseIdx)
						return c
					}),
				}
			},
			blank: func() academic.Draft { return academic.Draft{} },
			edit:  academic.Edit,
		},
		"subjects": &binding[academic.Subject, resource.NoDraft]{
			ctrl:   subjects,
			logger: logger,
			columns: func() []exportsvc.Column[academic.Subject] {
				return []exportsvc.Column[academic.Subject]{
					col("id", func(s academic.Subject) interface{} { return s.ID }),
					col("nombre", func(s academic.Subject) interface{} { return s.Name }),
				}
			},
			blank: noDraft,
			edit:  func(academic.Subject) resource.NoDraft { return resource.NoDraft{} },
		},
		"courses": &binding[academic.Course, resource.NoDraft]{
			ctrl:   courses,
			logger: logger,
			columns: func() []exportsvc.Column[academic.Course] {
				return []exportsvc.Column[academic.Course]{
					col("id", func(c academic.Course) interface{} { return c.ID }),
					col("paralelo", func(c academic.Course) interface{} { return c.Parallel }),
					col("nombre", func(c academic.Course) interface{} { return c.Name }),
				}
			},
			blank: noDraft,
			edit:  func(academic.Course) resource.NoDraft { return resource.NoDraft{} },
		},
	}
}

// roleFilter accepts a role id or name.
func roleFilter(o viewOptions) (resource.Filter[user.User], error) {
	if id, err := strconv.Atoi(strings.TrimSpace(o.role)); err == nil {
		if _, ok := user.RoleByID(id); ok {
			return user.HasRole(id), nil
		}
	} else if r, ok := user.RoleByName(o.role); ok {
		return user.HasRole(r.ID), nil
	}
	names := make([]string, len(user.Roles))
	for i, r := range user.Roles {
		names[i] = strconv.Itoa(r.ID) + "=" + r.Name
	}
	return nil, errors.Errorf("unknown role %q (one of %s)", o.role, strings.Join(names, ", "))
}
