package schedule_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/crud"
	"github.com/trezcool/classroom/core/schedule"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/testutil"
)

var ctx = context.Background()

func TestTimeOrder(t *testing.T) {
	vld := testutil.NewValidator()

	tests := []struct {
		name       string
		start, end int
		wantErr    bool
	}{
		{name: "ordered", start: 8, end: 10},
		{name: "same time", start: 8, end: 8, wantErr: true},
		{name: "reversed", start: 10, end: 8, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := vld.Struct(schedule.Schedule{TimeStart: tt.start, TimeEnd: tt.end}).FieldMessages()
			if !tt.wantErr {
				assert.Empty(t, msgs)
				return
			}
			assert.Equal(t, map[string][]string{"time_end": {"end time must be greater than start time"}}, msgs)
		})
	}
}

func TestService_Create(t *testing.T) {
	st := testutil.NewStack(t)
	crs := testutil.CreateCourse(t, st.CourseRepo, "Go", 10)
	cls := testutil.CreateClass(t, st.ClassRepo, "Go 101", crs, user.User{})

	_, err := st.ScheduleSvc.Create(ctx, crud.ChangeSet{{Field: schedule.FieldClassroom, Value: " "}, {Field: schedule.FieldTimeStart, Value: "8"}})
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, map[string][]string{
		"class_name": {"this field is required"},
		"time_end":   {"this field is required"},
	}, verr.FieldMessages())

	sch, err := st.ScheduleSvc.Create(ctx, crud.ChangeSet{
		{Field: schedule.FieldClassroom, Value: "Go 101"},
		{Field: schedule.FieldTimeStart, Value: "8"},
		{Field: schedule.FieldTimeEnd, Value: "10"},
	})
	require.NoError(t, err)
	assert.Equal(t, cls.ID, sch.Classroom)
	assert.False(t, sch.Desc.Valid)
}

func TestService_List(t *testing.T) {
	st := testutil.NewStack(t)
	crs := testutil.CreateCourse(t, st.CourseRepo, "Go", 10)
	cls := testutil.CreateClass(t, st.ClassRepo, "Go 101", crs, user.User{})
	late := testutil.CreateSchedule(t, st.ScheduleRepo, cls, 12, 14)
	early := testutil.CreateSchedule(t, st.ScheduleRepo, cls, 8, 10)

	got, err := st.ScheduleSvc.List(ctx, cls.ID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, []schedule.Schedule{early, late}, got)

	std := testutil.CreateUser(t, st.UserRepo, "Std", "std@test.cd", "0810000001", "", []string{user.RoleStudent}, true)
	got, err = st.ScheduleSvc.List(ctx, "", std.ID.String())
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = st.ScheduleSvc.List(ctx, "", uuid.NewString())
	assert.Equal(t, user.ErrNotFound, err)

	_, err = st.ScheduleSvc.List(ctx, uuid.NewString(), std.ID.String())
	assert.Equal(t, class.ErrNotFound, err)

	_, err = st.ScheduleSvc.List(ctx, "", "lol")
	assert.IsType(t, &core.InvalidIdentifierError{}, err)
}

func TestService_Edit(t *testing.T) {
	st := testutil.NewStack(t)
	crs := testutil.CreateCourse(t, st.CourseRepo, "Go", 10)
	cls := testutil.CreateClass(t, st.ClassRepo, "Go 101", crs, user.User{})
	sch := testutil.CreateSchedule(t, st.ScheduleRepo, cls, 8, 10)

	_, modified, err := st.ScheduleSvc.Edit(ctx, sch.ID.String(), crud.ChangeSet{{Field: schedule.FieldTimeEnd, Value: "10"}})
	require.NoError(t, err)
	assert.Empty(t, modified)

	_, _, err = st.ScheduleSvc.Edit(ctx, sch.ID.String(), crud.ChangeSet{{Field: schedule.FieldTimeEnd, Value: "7"}})
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok, "got %v", err)
	assert.Contains(t, verr.FieldMessages(), "time_end")

	got, modified, err := st.ScheduleSvc.Edit(ctx, sch.ID.String(), crud.ChangeSet{{Field: schedule.FieldDesc, Value: "lab"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"desc", "updated_at"}, modified)
	assert.Equal(t, "lab", got.Desc.String)

	require.NoError(t, st.ScheduleSvc.Delete(ctx, sch.ID.String()))
	_, err = st.ScheduleSvc.Get(ctx, sch.ID.String())
	assert.Equal(t, schedule.ErrNotFound, err)
}
