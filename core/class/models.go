package class

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core/crud"
)

type Class struct {
	ID        uuid.UUID     `json:"uuid"`
	Name      string        `json:"name" validate:"required,max=100,singleline"`
	Status    string        `json:"status" validate:"required,max=50,singleline"`
	Desc      null.String   `json:"desc"`
	Course    uuid.UUID     `json:"course"`
	Teacher   uuid.NullUUID `json:"teacher"`
	Students  []uuid.UUID   `json:"students"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// EditableFields does not expose the roster; it is managed through AddStudents and RemoveStudents.
func (cls *Class) EditableFields() []crud.Field {
	return []crud.Field{
		crud.String(FieldName, &cls.Name),
		crud.String(FieldStatus, &cls.Status),
		crud.NullString(FieldDesc, &cls.Desc),
		crud.UUID(FieldCourse, &cls.Course),
		crud.NullUUID(FieldTeacher, &cls.Teacher),
	}
}

// Enrolls reports whether student is part of the roster.
func (cls Class) Enrolls(student uuid.UUID) bool {
	for _, id := range cls.Students {
		if id == student {
			return true
		}
	}
	return false
}

// NewClass contains the information needed to create a Class.
// Course is a course name; Teacher and Students hold UUIDs.
type NewClass struct {
	Name     string
	Status   string
	Desc     string
	Course   string
	Teacher  string
	Students string
}

// Created reports a class creation.
type Created struct {
	Class         Class
	TeacherAdded  bool
	StudentsAdded []uuid.UUID
}

// Summary is the listing view of a class.
type Summary struct {
	ID          uuid.UUID     `json:"-" db:"uuid"`
	Name        string        `json:"name" db:"name"`
	CourseName  string        `json:"course_name" db:"course_name"`
	TeacherName string        `json:"teacher_name" db:"teacher_name"`
	TeacherUUID uuid.NullUUID `json:"teacher_uuid" db:"teacher_uuid"`
	Status      string        `json:"status" db:"status"`
	NumStudents *int          `json:"num_students,omitempty" db:"num_students"`
}

const (
	FieldName    = "name"
	FieldStatus  = "status"
	FieldDesc    = "desc"
	FieldCourse  = "course"
	FieldTeacher = "teacher"
)
