package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/crud"
)

type classRepository struct {
	db *DB
}

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) NameExists(_ context.Context, name string, excluded uuid.UUID) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cls := range repo.db.classes {
		if cls.Name == name && cls.ID != excluded {
			return true, nil
		}
	}
	return false, nil
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.classes[cls.ID] = cloneClass(cls)
	return cloneClass(cls), nil
}

func (repo *classRepository) FindByUUID(_ context.Context, id uuid.UUID) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return cloneClass(cls), nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) FindByName(_ context.Context, name string) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cls := range repo.db.classes {
		if cls.Name == name {
			return cloneClass(cls), nil
		}
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.classes[cls.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	cls.Students = orig.Students // roster is not part of an update
	repo.db.classes[cls.ID] = cloneClass(cls)
	return cloneClass(cls), nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id uuid.UUID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.deleteClass(id)
	return nil
}

func (repo *classRepository) AddStudents(_ context.Context, classID uuid.UUID, ids []uuid.UUID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls, ok := repo.db.classes[classID]
	if !ok {
		return class.ErrNotFound
	}
	cls = cloneClass(cls)
	for _, id := range ids {
		if !cls.Enrolls(id) {
			cls.Students = append(cls.Students, id)
		}
	}
	repo.db.classes[classID] = cls
	return nil
}

func (repo *classRepository) RemoveStudents(ctx context.Context, classID uuid.UUID, ids []uuid.UUID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls, ok := repo.db.classes[classID]
	if !ok {
		return class.ErrNotFound
	}
	roster := crud.CollectionFunc(func(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
		enrolled := make([]uuid.UUID, 0, len(ids))
		for _, id := range ids {
			if cls.Enrolls(id) {
				enrolled = append(enrolled, id)
			}
		}
		return enrolled, nil
	})
	if _, err := crud.ReconcileIDs(ctx, roster, ids, crud.Strict); err != nil {
		return err
	}
	students := make([]uuid.UUID, 0, len(cls.Students))
	for _, std := range cls.Students {
		if !containsID(std, ids) {
			students = append(students, std)
		}
	}
	cls.Students = students
	repo.db.classes[classID] = cls
	return nil
}

func (repo *classRepository) ListSummaries(_ context.Context, student uuid.NullUUID) ([]class.Summary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	summaries := make([]class.Summary, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		if student.Valid && !cls.Enrolls(student.UUID) {
			continue
		}
		sum := class.Summary{
			ID:          cls.ID,
			Name:        cls.Name,
			CourseName:  repo.db.courses[cls.Course].Name,
			TeacherUUID: cls.Teacher,
			Status:      cls.Status,
		}
		if cls.Teacher.Valid {
			sum.TeacherName = repo.db.users[cls.Teacher.UUID].FullName()
		}
		if !student.Valid {
			n := len(cls.Students)
			sum.NumStudents = &n
		}
		summaries = append(summaries, sum)
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.NumStudents != nil && *a.NumStudents != *b.NumStudents {
			return *a.NumStudents > *b.NumStudents
		}
		return a.Name < b.Name
	})
	return summaries, nil
}
