package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
)

const courseColumns = `id, name, duration, description, tags, created_at, updated_at`

type courseRow struct {
	ID          uuid.UUID      `db:"id"`
	Name        string         `db:"name"`
	Duration    int            `db:"duration"`
	Description null.String    `db:"description"`
	Tags        pq.StringArray `db:"tags"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row courseRow) toCourse() course.Course {
	return course.Course{
		ID:        row.ID,
		Name:      row.Name,
		Duration:  row.Duration,
		Desc:      row.Description,
		Tags:      append([]string{}, row.Tags...),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	db core.DB
}

func NewCourseRepository(db core.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) NameExists(ctx context.Context, name string, excluded uuid.UUID) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM course WHERE name = $1 AND id <> $2)`
	if err := repo.db.GetContext(ctx, &exists, q, name, excluded); err != nil {
		return false, errors.Wrap(err, "checking course name")
	}
	return exists, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `INSERT INTO course (` + courseColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q, crs.ID, crs.Name, crs.Duration, crs.Desc, stringArray(crs.Tags), crs.CreatedAt, crs.UpdatedAt)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+courseColumns+` FROM course ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) findOne(ctx context.Context, cond string, arg interface{}) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+courseColumns+` FROM course WHERE `+cond+` = $1`, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) FindByUUID(ctx context.Context, id uuid.UUID) (course.Course, error) {
	return repo.findOne(ctx, "id", id)
}

func (repo *courseRepository) FindByName(ctx context.Context, name string) (course.Course, error) {
	return repo.findOne(ctx, "name", name)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `UPDATE course SET name = $2, duration = $3, description = $4, tags = $5, updated_at = $6 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, crs.ID, crs.Name, crs.Duration, crs.Desc, stringArray(crs.Tags), crs.UpdatedAt)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if err := checkAffected(res, course.ErrNotFound); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

func (repo *courseRepository) CountTags(ctx context.Context, limit int) ([]course.TagCount, error) {
	// a NULL limit means no limit
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
	q := `SELECT tag AS name, COUNT(*) AS num_times FROM course, unnest(tags) AS tag
		GROUP BY tag ORDER BY num_times DESC, name ASC LIMIT $1`

	var rows []struct {
		Name     string `db:"name"`
		NumTimes int    `db:"num_times"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, lim); err != nil {
		return nil, errors.Wrap(err, "counting tags")
	}
	tags := make([]course.TagCount, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, course.TagCount{Name: row.Name, NumTimes: row.NumTimes})
	}
	return tags, nil
}

func (repo *courseRepository) TagsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	tags := make([]string, 0)
	q := `SELECT DISTINCT tag FROM course, unnest(tags) AS tag WHERE tag ILIKE $1 ORDER BY tag`
	if err := repo.db.SelectContext(ctx, &tags, q, escapeLike(prefix)+"%"); err != nil {
		return nil, errors.Wrap(err, "selecting tags")
	}
	return tags, nil
}
