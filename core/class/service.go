package class

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/crud"
	"github.com/trezcool/classroom/core/user"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("Class")
	ErrNameExists = errors.New("a class with this name already exists")
	ErrNotTeacher = errors.New("user is not a teacher")
)

type (
	Repository interface {
		// NameExists reports whether a class other than excluded is named name.
		NameExists(ctx context.Context, name string, excluded uuid.UUID) (bool, error)
		// CreateClass saves cls along with its roster.
		CreateClass(ctx context.Context, cls Class) (Class, error)
		FindByUUID(ctx context.Context, id uuid.UUID) (Class, error)
		FindByName(ctx context.Context, name string) (Class, error)
		// UpdateClass saves every attribute of cls but its roster.
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		// DeleteClass deletes the class along with its roster and schedules.
		DeleteClass(ctx context.Context, id uuid.UUID) error
		// AddStudents enrolls students in the class; already enrolled ones are ignored.
		AddStudents(ctx context.Context, classID uuid.UUID, ids []uuid.UUID) error
		// RemoveStudents unenrolls students from the class, all of them or none.
		// It fails with a *core.PartialMatchError listing the ids not enrolled.
		RemoveStudents(ctx context.Context, classID uuid.UUID, ids []uuid.UUID) error
		// ListSummaries lists the classes of student, ordered by name.
		// Without a student, all classes are listed with their number of students, ordered by it desc then by name.
		ListSummaries(ctx context.Context, student uuid.NullUUID) ([]Summary, error)
	}

	// Users is the subset of the user store needed to manage classes.
	Users interface {
		crud.UUIDFinder[user.User]
		crud.Collection
	}

	// Courses resolves the courses referenced by name.
	Courses interface {
		crud.NameFinder[course.Course]
	}

	Service struct {
		repo    Repository
		courses Courses
		users   Users
		policy  user.Policy
		vld     *core.Validator
	}
)

func NewService(repo Repository, courses Courses, users Users, policy user.Policy, vld *core.Validator) *Service {
	return &Service{
		repo:    repo,
		courses: courses,
		users:   users,
		policy:  policy,
		vld:     vld,
	}
}

// validate runs the full validation of cls before it gets saved.
func (svc *Service) validate(ctx context.Context, cls Class) error {
	verr := svc.vld.Struct(cls)
	if cls.Name != "" {
		exists, err := svc.repo.NameExists(ctx, cls.Name, cls.ID)
		if err != nil {
			return errors.Wrap(err, "checking class name")
		}
		if exists {
			verr.Add(FieldName, ErrNameExists.Error())
		}
	}
	return verr.OrNil()
}

// resolveCourse turns a course name into its UUID, reporting unknown names on field.
func (svc *Service) resolveCourse(ctx context.Context, field, name string) (uuid.UUID, error) {
	if name = core.CleanString(name); name == "" {
		return uuid.Nil, core.NewFieldError(field, "this field is required")
	}
	crs, err := svc.courses.FindByName(ctx, name)
	if err != nil {
		if core.IsNotFound(err) {
			return uuid.Nil, core.NewFieldError(field, err.Error())
		}
		return uuid.Nil, errors.Wrap(err, "finding course")
	}
	return crs.ID, nil
}

// resolveTeacher turns a user UUID into a teacher reference. A blank id means no teacher.
func (svc *Service) resolveTeacher(ctx context.Context, field, id string) (uuid.NullUUID, error) {
	if id = core.CleanString(id); id == "" {
		return uuid.NullUUID{}, nil
	}
	usr, err := crud.Locate[user.User](ctx, svc.users, crud.Key{UUID: id}, user.ErrNotFound)
	if err != nil {
		if core.IsNotFound(err) {
			return uuid.NullUUID{}, core.NewFieldError(field, err.Error())
		}
		return uuid.NullUUID{}, err
	}
	if !svc.policy.IsTeacher(usr) {
		return uuid.NullUUID{}, core.NewFieldError(field, ErrNotTeacher.Error())
	}
	return uuid.NullUUID{UUID: usr.ID, Valid: true}, nil
}

// Create saves a new class; the roster is made of the students of nc that exist.
func (svc *Service) Create(ctx context.Context, nc NewClass) (Created, error) {
	// identifiers are checked before anything gets resolved
	stdIDs, err := crud.ParseIdentifiers(nc.Students)
	if err != nil {
		return Created{}, err
	}

	cls := Class{
		ID:       uuid.New(),
		Name:     core.CleanString(nc.Name),
		Status:   core.CleanString(nc.Status),
		Students: []uuid.UUID{},
	}
	cls.Desc, _ = crud.ParseNullString(nc.Desc)

	verr := core.NewValidationError(nil)
	report := func(err error) error {
		if ve, ok := err.(*core.ValidationError); ok {
			verr.Merge(ve)
			return nil
		}
		return err
	}
	if cls.Course, err = svc.resolveCourse(ctx, "course_name", nc.Course); err != nil {
		if err = report(err); err != nil {
			return Created{}, err
		}
	}
	if cls.Teacher, err = svc.resolveTeacher(ctx, "teacher_uuid", nc.Teacher); err != nil {
		if err = report(err); err != nil {
			return Created{}, err
		}
	}
	if err = svc.validate(ctx, cls); err != nil {
		if err = report(err); err != nil {
			return Created{}, err
		}
	}
	if err = verr.OrNil(); err != nil {
		return Created{}, err
	}

	res, err := crud.ReconcileIDs(ctx, svc.users, stdIDs, crud.Lenient)
	if err != nil {
		return Created{}, errors.Wrap(err, "resolving students")
	}
	if res.Found != nil {
		cls.Students = res.Found
	}

	now := core.Now()
	cls.CreatedAt, cls.UpdatedAt = now, now
	if cls, err = svc.repo.CreateClass(ctx, cls); err != nil {
		return Created{}, errors.Wrap(err, "creating class")
	}
	return Created{
		Class:         cls,
		TeacherAdded:  cls.Teacher.Valid,
		StudentsAdded: cls.Students,
	}, nil
}

// Get finds a Class by UUID or name.
func (svc *Service) Get(ctx context.Context, key crud.Key) (Class, error) {
	return crud.Locate[Class](ctx, svc.repo, key, ErrNotFound)
}

// List lists the classes of student, or all classes when student is blank. An unknown student is not found.
func (svc *Service) List(ctx context.Context, student string) ([]Summary, error) {
	var std uuid.NullUUID
	if student = core.CleanString(student); student != "" {
		usr, err := crud.Locate[user.User](ctx, svc.users, crud.Key{UUID: student}, user.ErrNotFound)
		if err != nil {
			return nil, err
		}
		std = uuid.NullUUID{UUID: usr.ID, Valid: true}
	}
	return svc.repo.ListSummaries(ctx, std)
}

// AddStudents enrolls the existing students among the comma separated ids; unknown ones are ignored.
func (svc *Service) AddStudents(ctx context.Context, key crud.Key, ids string) ([]uuid.UUID, error) {
	stdIDs, err := crud.ParseIdentifiers(ids)
	if err != nil {
		return nil, err
	}
	cls, err := svc.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	res, err := crud.ReconcileIDs(ctx, svc.users, stdIDs, crud.Lenient)
	if err != nil {
		return nil, errors.Wrap(err, "resolving students")
	}
	if len(res.Found) == 0 {
		return []uuid.UUID{}, nil
	}
	if err := svc.repo.AddStudents(ctx, cls.ID, res.Found); err != nil {
		return nil, errors.Wrap(err, "adding students")
	}
	return res.Found, nil
}

// RemoveStudents unenrolls the comma separated students.
// Nothing is removed unless every one of them is enrolled.
func (svc *Service) RemoveStudents(ctx context.Context, key crud.Key, ids string) error {
	stdIDs, err := crud.ParseIdentifiers(ids)
	if err != nil {
		return err
	}
	cls, err := svc.Get(ctx, key)
	if err != nil {
		return err
	}
	if len(stdIDs) == 0 {
		return nil
	}
	return svc.repo.RemoveStudents(ctx, cls.ID, stdIDs)
}

// Edit applies cs onto the class found by key and saves it when anything changed.
// A `course` change holds a course name and a `teacher` change a user UUID (blank to unassign).
func (svc *Service) Edit(ctx context.Context, key crud.Key, cs crud.ChangeSet) (Class, []string, error) {
	cls, err := svc.Get(ctx, key)
	if err != nil {
		return Class{}, nil, err
	}

	if name, ok := cs.String(FieldCourse); ok {
		id, err := svc.resolveCourse(ctx, FieldCourse, name)
		if err != nil {
			return Class{}, nil, err
		}
		cs = cs.Set(FieldCourse, id)
	}
	if id, ok := cs.String(FieldTeacher); ok {
		teacher, err := svc.resolveTeacher(ctx, FieldTeacher, id)
		if err != nil {
			return Class{}, nil, err
		}
		cs = cs.Set(FieldTeacher, teacher)
	}

	modified, err := crud.Apply(&cls, cs)
	if err != nil || len(modified) == 0 {
		return cls, modified, err
	}

	cls.UpdatedAt = core.Now()
	modified = append(modified, crud.FieldUpdatedAt)
	if err := svc.validate(ctx, cls); err != nil {
		return Class{}, nil, err
	}
	if cls, err = svc.repo.UpdateClass(ctx, cls); err != nil {
		return Class{}, nil, errors.Wrap(err, "updating class")
	}
	return cls, modified, nil
}

// Delete deletes the class found by key and returns it.
func (svc *Service) Delete(ctx context.Context, key crud.Key) (Class, error) {
	cls, err := svc.Get(ctx, key)
	if err != nil {
		return Class{}, err
	}
	if err := svc.repo.DeleteClass(ctx, cls.ID); err != nil {
		return Class{}, errors.Wrap(err, "deleting class")
	}
	return cls, nil
}
