package schedule

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/crud"
	"github.com/trezcool/classroom/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("Schedule")
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, sch Schedule) (Schedule, error)
		FindByUUID(ctx context.Context, id uuid.UUID) (Schedule, error)
		// QuerySchedules returns the schedules matching filter, ordered by start time.
		QuerySchedules(ctx context.Context, filter Filter) ([]Schedule, error)
		UpdateSchedule(ctx context.Context, sch Schedule) (Schedule, error)
		DeleteSchedule(ctx context.Context, id uuid.UUID) error
	}

	// Classes resolves the classes referenced by name or UUID.
	Classes interface {
		crud.UUIDFinder[class.Class]
		crud.NameFinder[class.Class]
	}

	Service struct {
		repo    Repository
		classes Classes
		users   crud.UUIDFinder[user.User]
		vld     *core.Validator
	}
)

func NewService(repo Repository, classes Classes, users crud.UUIDFinder[user.User], vld *core.Validator) *Service {
	return &Service{repo: repo, classes: classes, users: users, vld: vld}
}

const fieldClassName = "class_name"

// resolveClass replaces the class name held by the `classroom` change of cs with the class UUID.
func (svc *Service) resolveClass(ctx context.Context, cs crud.ChangeSet, field string) (crud.ChangeSet, error) {
	name, ok := cs.String(FieldClassroom)
	if !ok {
		return cs, nil
	}
	if name = core.CleanString(name); name == "" {
		return cs, core.NewFieldError(field, "this field is required")
	}
	cls, err := svc.classes.FindByName(ctx, name)
	if err != nil {
		if core.IsNotFound(err) {
			return cs, core.NewFieldError(field, err.Error())
		}
		return cs, errors.Wrap(err, "finding class")
	}
	return cs.Set(FieldClassroom, cls.ID), nil
}

// Create builds a schedule out of data; `classroom` holds a class name.
// Every invalid or missing value is reported at once.
func (svc *Service) Create(ctx context.Context, data crud.ChangeSet) (Schedule, error) {
	verr := core.NewValidationError(nil)
	if !data.Has(FieldClassroom) {
		verr.Add(fieldClassName, "this field is required")
	}
	data, err := svc.resolveClass(ctx, data, fieldClassName)
	if err != nil {
		ve, ok := err.(*core.ValidationError)
		if !ok {
			return Schedule{}, err
		}
		verr.Merge(ve)
		data = data.Without(FieldClassroom)
	}
	sch := Schedule{ID: uuid.New()}
	if err := crud.Create(&sch, data, FieldTimeStart, FieldTimeEnd); err != nil {
		ve, ok := err.(*core.ValidationError)
		if !ok {
			return Schedule{}, err
		}
		verr.Merge(ve)
	}
	if err := verr.OrNil(); err != nil {
		return Schedule{}, err
	}
	if err := svc.vld.Struct(sch).OrNil(); err != nil {
		return Schedule{}, err
	}

	now := core.Now()
	sch.CreatedAt, sch.UpdatedAt = now, now
	sch, err = svc.repo.CreateSchedule(ctx, sch)
	return sch, errors.Wrap(err, "creating schedule")
}

// Get finds a Schedule by UUID.
func (svc *Service) Get(ctx context.Context, id string) (Schedule, error) {
	return crud.Locate[Schedule](ctx, svc.repo, crud.Key{UUID: id}, ErrNotFound)
}

// List lists the schedules of a class (classID) or of the classes a student attends (studentID).
// classID wins over studentID; with neither, every schedule is listed.
// An unknown class or student is not found.
func (svc *Service) List(ctx context.Context, classID, studentID string) ([]Schedule, error) {
	var filter Filter
	switch {
	case core.CleanString(classID) != "":
		cls, err := crud.Locate[class.Class](ctx, svc.classes, crud.Key{UUID: classID}, class.ErrNotFound)
		if err != nil {
			return nil, err
		}
		filter.Class = uuid.NullUUID{UUID: cls.ID, Valid: true}
	case core.CleanString(studentID) != "":
		std, err := crud.Locate[user.User](ctx, svc.users, crud.Key{UUID: studentID}, user.ErrNotFound)
		if err != nil {
			return nil, err
		}
		filter.Student = uuid.NullUUID{UUID: std.ID, Valid: true}
	}
	return svc.repo.QuerySchedules(ctx, filter)
}

// Edit applies cs onto the schedule identified by id and saves it when anything changed.
func (svc *Service) Edit(ctx context.Context, id string, cs crud.ChangeSet) (Schedule, []string, error) {
	sch, err := svc.Get(ctx, id)
	if err != nil {
		return Schedule{}, nil, err
	}
	if cs, err = svc.resolveClass(ctx, cs, FieldClassroom); err != nil {
		return Schedule{}, nil, err
	}

	modified, err := crud.Apply(&sch, cs)
	if err != nil || len(modified) == 0 {
		return sch, modified, err
	}

	sch.UpdatedAt = core.Now()
	modified = append(modified, crud.FieldUpdatedAt)
	if err := svc.vld.Struct(sch).OrNil(); err != nil {
		return Schedule{}, nil, err
	}
	if sch, err = svc.repo.UpdateSchedule(ctx, sch); err != nil {
		return Schedule{}, nil, errors.Wrap(err, "updating schedule")
	}
	return sch, modified, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	sch, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteSchedule(ctx, sch.ID), "deleting schedule")
}
