package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core/course"
)

type courseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) NameExists(_ context.Context, name string, excluded uuid.UUID) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Name == name && crs.ID != excluded {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.courses[crs.ID] = cloneCourse(crs)
	return cloneCourse(crs), nil
}

func (repo *courseRepository) QueryCourses(_ context.Context) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, cloneCourse(crs))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *courseRepository) FindByUUID(_ context.Context, id uuid.UUID) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return cloneCourse(crs), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) FindByName(_ context.Context, name string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Name == name {
			return cloneCourse(crs), nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = cloneCourse(crs)
	return cloneCourse(crs), nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id uuid.UUID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.courses, id)
	for clsID, cls := range repo.db.classes {
		if cls.Course == id {
			repo.db.deleteClass(clsID)
		}
	}
	return nil
}

func (repo *courseRepository) CountTags(_ context.Context, limit int) ([]course.TagCount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, crs := range repo.db.courses {
		for _, tag := range crs.Tags {
			counts[tag]++
		}
	}
	tags := make([]course.TagCount, 0, len(counts))
	for name, n := range counts {
		tags = append(tags, course.TagCount{Name: name, NumTimes: n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].NumTimes != tags[j].NumTimes {
			return tags[i].NumTimes > tags[j].NumTimes
		}
		return tags[i].Name < tags[j].Name
	})
	if limit > 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	return tags, nil
}

func (repo *courseRepository) TagsWithPrefix(_ context.Context, prefix string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]bool)
	tags := make([]string, 0)
	for _, crs := range repo.db.courses {
		for _, tag := range crs.Tags {
			if !seen[tag] && course.HasTagPrefix(tag, prefix) {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}
