package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/schedule"
)

const scheduleColumns = `id, class_id, time_start, time_end, description, created_at, updated_at`

type scheduleRow struct {
	ID          uuid.UUID   `db:"id"`
	ClassID     uuid.UUID   `db:"class_id"`
	TimeStart   int         `db:"time_start"`
	TimeEnd     int         `db:"time_end"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row scheduleRow) toSchedule() schedule.Schedule {
	return schedule.Schedule{
		ID:        row.ID,
		Classroom: row.ClassID,
		TimeStart: row.TimeStart,
		TimeEnd:   row.TimeEnd,
		Desc:      row.Description,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type scheduleRepository struct {
	db core.DB
}

func NewScheduleRepository(db core.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	q := `INSERT INTO schedule (` + scheduleColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q, sch.ID, sch.Classroom, sch.TimeStart, sch.TimeEnd, sch.Desc, sch.CreatedAt, sch.UpdatedAt)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return sch, nil
}

func (repo *scheduleRepository) FindByUUID(ctx context.Context, id uuid.UUID) (schedule.Schedule, error) {
	var row scheduleRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+scheduleColumns+` FROM schedule WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule.Schedule{}, schedule.ErrNotFound
		}
		return schedule.Schedule{}, errors.Wrap(err, "selecting schedule")
	}
	return row.toSchedule(), nil
}

func (repo *scheduleRepository) QuerySchedules(ctx context.Context, filter schedule.Filter) ([]schedule.Schedule, error) {
	var ph placeholders
	q := `SELECT ` + scheduleColumns + ` FROM schedule`
	switch {
	case filter.Class.Valid:
		q += ` WHERE class_id = ` + ph.add(filter.Class.UUID)
	case filter.Student.Valid:
		q += ` WHERE class_id IN (SELECT class_id FROM class_student WHERE student_id = ` + ph.add(filter.Student.UUID) + `)`
	}
	q += ` ORDER BY time_start, time_end, id`

	var rows []scheduleRow
	if err := repo.db.SelectContext(ctx, &rows, q, ph.args...); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	schedules := make([]schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, row.toSchedule())
	}
	return schedules, nil
}

func (repo *scheduleRepository) UpdateSchedule(ctx context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	q := `UPDATE schedule SET class_id = $2, time_start = $3, time_end = $4, description = $5, updated_at = $6 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, sch.ID, sch.Classroom, sch.TimeStart, sch.TimeEnd, sch.Desc, sch.UpdatedAt)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if err := checkAffected(res, schedule.ErrNotFound); err != nil {
		return schedule.Schedule{}, err
	}
	return sch, nil
}

func (repo *scheduleRepository) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM schedule WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return nil
}
