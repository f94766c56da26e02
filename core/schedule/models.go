package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core/crud"
)

const (
	FieldClassroom = "classroom"
	FieldTimeStart = "time_start"
	FieldTimeEnd   = "time_end"
	FieldDesc      = "desc"
)

type Schedule struct {
	ID        uuid.UUID   `json:"uuid"`
	Classroom uuid.UUID   `json:"classroom"`
	TimeStart int         `json:"time_start" validate:"gte=0"`
	TimeEnd   int         `json:"time_end" validate:"gte=0"`
	Desc      null.String `json:"desc"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (sch *Schedule) EditableFields() []crud.Field {
	return []crud.Field{
		crud.UUID(FieldClassroom, &sch.Classroom),
		crud.Int(FieldTimeStart, &sch.TimeStart),
		crud.Int(FieldTimeEnd, &sch.TimeEnd),
		crud.NullString(FieldDesc, &sch.Desc),
	}
}

// Filter narrows a schedule listing down to a class or to the classes of a student. Class wins when both are set.
type Filter struct {
	Class   uuid.NullUUID
	Student uuid.NullUUID
}
