package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/crud"
)

const classColumns = `id, name, status, description, course_id, teacher_id, created_at, updated_at`

type classRow struct {
	ID          uuid.UUID     `db:"id"`
	Name        string        `db:"name"`
	Status      string        `db:"status"`
	Description null.String   `db:"description"`
	CourseID    uuid.UUID     `db:"course_id"`
	TeacherID   uuid.NullUUID `db:"teacher_id"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func (row classRow) toClass(students []uuid.UUID) class.Class {
	if students == nil {
		students = []uuid.UUID{}
	}
	return class.Class{
		ID:        row.ID,
		Name:      row.Name,
		Status:    row.Status,
		Desc:      row.Description,
		Course:    row.CourseID,
		Teacher:   row.TeacherID,
		Students:  students,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type classRepository struct {
	db core.DB
}

func NewClassRepository(db core.DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) NameExists(ctx context.Context, name string, excluded uuid.UUID) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM class WHERE name = $1 AND id <> $2)`
	if err := repo.db.GetContext(ctx, &exists, q, name, excluded); err != nil {
		return false, errors.Wrap(err, "checking class name")
	}
	return exists, nil
}

func enroll(ctx context.Context, db core.DBExecutor, classID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	q := `INSERT INTO class_student (class_id, student_id, created_at)
		SELECT $1, std, $3 FROM unnest($2::uuid[]) AS std ON CONFLICT DO NOTHING`
	if _, err := db.ExecContext(ctx, q, classID, uuidArray(ids), core.Now()); err != nil {
		return errors.Wrap(err, "enrolling students")
	}
	return nil
}

// lockClass locks the class row for the rest of the transaction.
func lockClass(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var found uuid.UUID
	if err := tx.GetContext(ctx, &found, `SELECT id FROM class WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return class.ErrNotFound
		}
		return errors.Wrap(err, "locking class")
	}
	return nil
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO class (` + classColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		_, err := tx.ExecContext(ctx, q, cls.ID, cls.Name, cls.Status, cls.Desc, cls.Course, cls.Teacher, cls.CreatedAt, cls.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "inserting class")
		}
		return enroll(ctx, tx, cls.ID, cls.Students)
	})
	if err != nil {
		return class.Class{}, err
	}
	return cls, nil
}

func (repo *classRepository) students(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	q := `SELECT student_id FROM class_student WHERE class_id = $1 ORDER BY created_at, student_id`
	if err := repo.db.SelectContext(ctx, &ids, q, id); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return ids, nil
}

func (repo *classRepository) findOne(ctx context.Context, cond string, arg interface{}) (class.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+classColumns+` FROM class WHERE `+cond+` = $1`, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "selecting class")
	}
	students, err := repo.students(ctx, row.ID)
	if err != nil {
		return class.Class{}, err
	}
	return row.toClass(students), nil
}

func (repo *classRepository) FindByUUID(ctx context.Context, id uuid.UUID) (class.Class, error) {
	return repo.findOne(ctx, "id", id)
}

func (repo *classRepository) FindByName(ctx context.Context, name string) (class.Class, error) {
	return repo.findOne(ctx, "name", name)
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q := `UPDATE class SET name = $2, status = $3, description = $4, course_id = $5, teacher_id = $6, updated_at = $7
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, cls.ID, cls.Name, cls.Status, cls.Desc, cls.Course, cls.Teacher, cls.UpdatedAt)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if err := checkAffected(res, class.ErrNotFound); err != nil {
		return class.Class{}, err
	}
	students, err := repo.students(ctx, cls.ID)
	if err != nil {
		return class.Class{}, err
	}
	if students == nil {
		students = []uuid.UUID{}
	}
	cls.Students = students
	return cls, nil
}

func (repo *classRepository) DeleteClass(ctx context.Context, id uuid.UUID) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return nil
}

// enrolled returns the ids among ids of the students enrolled in the class.
func enrolled(ctx context.Context, db core.DBExecutor, classID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	q := `SELECT student_id FROM class_student WHERE class_id = $1 AND student_id = ANY($2::uuid[])`
	if err := db.SelectContext(ctx, &found, q, classID, uuidArray(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting enrolled students")
	}
	return found, nil
}

func (repo *classRepository) AddStudents(ctx context.Context, classID uuid.UUID, ids []uuid.UUID) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockClass(ctx, tx, classID); err != nil {
			return err
		}
		return enroll(ctx, tx, classID, ids)
	})
}

func (repo *classRepository) RemoveStudents(ctx context.Context, classID uuid.UUID, ids []uuid.UUID) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockClass(ctx, tx, classID); err != nil {
			return err
		}
		roster := crud.CollectionFunc(func(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
			return enrolled(ctx, tx, classID, ids)
		})
		if _, err := crud.ReconcileIDs(ctx, roster, ids, crud.Strict); err != nil {
			return err
		}
		q := `DELETE FROM class_student WHERE class_id = $1 AND student_id = ANY($2::uuid[])`
		if _, err := tx.ExecContext(ctx, q, classID, uuidArray(ids)); err != nil {
			return errors.Wrap(err, "removing students")
		}
		return nil
	})
}

const summarySelect = `SELECT c.id AS uuid, c.name, co.name AS course_name,
	concat_ws(' ', NULLIF(u.last_name, ''), NULLIF(u.mid_name, ''), NULLIF(u.first_name, '')) AS teacher_name,
	c.teacher_id AS teacher_uuid, c.status`

func (repo *classRepository) ListSummaries(ctx context.Context, student uuid.NullUUID) ([]class.Summary, error) {
	var (
		q    string
		args []interface{}
	)
	if student.Valid {
		q = summarySelect + ` FROM class c
			JOIN course co ON co.id = c.course_id
			LEFT JOIN "user" u ON u.id = c.teacher_id
			JOIN class_student cs ON cs.class_id = c.id AND cs.student_id = $1
			ORDER BY c.name`
		args = append(args, student.UUID)
	} else {
		q = summarySelect + `, (SELECT COUNT(*) FROM class_student cs WHERE cs.class_id = c.id) AS num_students
			FROM class c
			JOIN course co ON co.id = c.course_id
			LEFT JOIN "user" u ON u.id = c.teacher_id
			ORDER BY num_students DESC, c.name`
	}

	summaries := make([]class.Summary, 0)
	if err := repo.db.SelectContext(ctx, &summaries, q, args...); err != nil {
		return nil, errors.Wrap(err, "listing classes")
	}
	return summaries, nil
}
