package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.schedules[sch.ID] = sch
	return sch, nil
}

func (repo *scheduleRepository) FindByUUID(_ context.Context, id uuid.UUID) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sch, ok := repo.db.schedules[id]; ok {
		return sch, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) QuerySchedules(_ context.Context, filter schedule.Filter) ([]schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schedules := make([]schedule.Schedule, 0, len(repo.db.schedules))
	for _, sch := range repo.db.schedules {
		if filter.Class.Valid && sch.Classroom != filter.Class.UUID {
			continue
		}
		if filter.Student.Valid && !repo.db.classes[sch.Classroom].Enrolls(filter.Student.UUID) {
			continue
		}
		schedules = append(schedules, sch)
	}
	sort.Slice(schedules, func(i, j int) bool {
		a, b := schedules[i], schedules[j]
		if a.TimeStart != b.TimeStart {
			return a.TimeStart < b.TimeStart
		}
		if a.TimeEnd != b.TimeEnd {
			return a.TimeEnd < b.TimeEnd
		}
		return a.ID.String() < b.ID.String()
	})
	return schedules, nil
}

func (repo *scheduleRepository) UpdateSchedule(_ context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.schedules[sch.ID]; !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	repo.db.schedules[sch.ID] = sch
	return sch, nil
}

func (repo *scheduleRepository) DeleteSchedule(_ context.Context, id uuid.UUID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.schedules, id)
	return nil
}
