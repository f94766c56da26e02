package course

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/crud"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("Course")
	ErrNameExists = errors.New("a course with this name already exists")
)

type (
	Repository interface {
		// NameExists reports whether a course other than excluded is named name.
		NameExists(ctx context.Context, name string, excluded uuid.UUID) (bool, error)
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// QueryCourses returns all courses ordered by name.
		QueryCourses(ctx context.Context) ([]Course, error)
		FindByUUID(ctx context.Context, id uuid.UUID) (Course, error)
		FindByName(ctx context.Context, name string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		// DeleteCourse deletes the course along with its classes.
		DeleteCourse(ctx context.Context, id uuid.UUID) error
		// CountTags returns at most limit tag counts ordered by count desc then name; limit <= 0 means no limit.
		CountTags(ctx context.Context, limit int) ([]TagCount, error)
		// TagsWithPrefix returns the sorted distinct tags starting with prefix, ignoring case.
		TagsWithPrefix(ctx context.Context, prefix string) ([]string, error)
	}

	Service struct {
		repo Repository
		vld  *core.Validator
	}
)

func NewService(repo Repository, vld *core.Validator) *Service {
	return &Service{repo: repo, vld: vld}
}

// validate runs the full validation of crs before it gets saved.
func (svc *Service) validate(ctx context.Context, crs Course) error {
	verr := svc.vld.Struct(crs)
	if crs.Name != "" {
		exists, err := svc.repo.NameExists(ctx, crs.Name, crs.ID)
		if err != nil {
			return errors.Wrap(err, "checking course name")
		}
		if exists {
			verr.Add("name", ErrNameExists.Error())
		}
	}
	return verr.OrNil()
}

// Create builds a course out of data; `name` and `duration` are required.
func (svc *Service) Create(ctx context.Context, data crud.ChangeSet) (Course, error) {
	crs := Course{ID: uuid.New(), Tags: []string{}}
	if err := crud.Create(&crs, data, "name", "duration"); err != nil {
		return Course{}, err
	}
	if err := svc.validate(ctx, crs); err != nil {
		return Course{}, err
	}

	now := core.Now()
	crs.CreatedAt, crs.UpdatedAt = now, now
	crs, err := svc.repo.CreateCourse(ctx, crs)
	return crs, errors.Wrap(err, "creating course")
}

// Get finds a Course by UUID or name.
func (svc *Service) Get(ctx context.Context, key crud.Key) (Course, error) {
	return crud.Locate[Course](ctx, svc.repo, key, ErrNotFound)
}

func (svc *Service) List(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

// Edit applies cs onto the course found by key and saves it when anything changed.
func (svc *Service) Edit(ctx context.Context, key crud.Key, cs crud.ChangeSet) (Course, []string, error) {
	crs, err := svc.Get(ctx, key)
	if err != nil {
		return Course{}, nil, err
	}
	modified, err := crud.Apply(&crs, cs)
	if err != nil || len(modified) == 0 {
		return crs, modified, err
	}

	crs.UpdatedAt = core.Now()
	modified = append(modified, crud.FieldUpdatedAt)
	if err := svc.validate(ctx, crs); err != nil {
		return Course{}, nil, err
	}
	if crs, err = svc.repo.UpdateCourse(ctx, crs); err != nil {
		return Course{}, nil, errors.Wrap(err, "updating course")
	}
	return crs, modified, nil
}

func (svc *Service) Delete(ctx context.Context, key crud.Key) error {
	crs, err := svc.Get(ctx, key)
	if err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteCourse(ctx, crs.ID), "deleting course")
}

// Tags returns the tag usage histogram.
func (svc *Service) Tags(ctx context.Context, limit int) ([]TagCount, error) {
	return svc.repo.CountTags(ctx, limit)
}

// RecommendTags returns the known tags starting with txt. A blank txt recommends nothing.
func (svc *Service) RecommendTags(ctx context.Context, txt string) ([]string, error) {
	if txt = core.CleanString(txt); txt == "" {
		return []string{}, nil
	}
	return svc.repo.TagsWithPrefix(ctx, txt)
}
