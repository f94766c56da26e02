package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/classroom/apps/api/echo"
	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/testutil"
)

type classFixtures struct {
	teacher, std1, std2 user.User
}

func createClassFixtures(t *testing.T, st *testutil.Stack) classFixtures {
	return classFixtures{
		teacher: testutil.CreateUser(t, st.UserRepo, "Teach", "teach@test.cd", "0810000001", "", []string{user.RoleTeacher}, true),
		std1:    testutil.CreateUser(t, st.UserRepo, "Std1", "std1@test.cd", "0810000002", "", []string{user.RoleStudent}, true),
		std2:    testutil.CreateUser(t, st.UserRepo, "Std2", "std2@test.cd", "0810000003", "", []string{user.RoleStudent}, true),
	}
}

func getClass(t *testing.T, st *testutil.Stack, id uuid.UUID) class.Class {
	cls, err := st.ClassRepo.FindByUUID(testCtx, id)
	require.NoError(t, err)
	return cls
}

func Test_classApi_create(t *testing.T) {
	app, st := newTestApp(t)
	fx := createClassFixtures(t, st)
	crs := testutil.CreateCourse(t, st.CourseRepo, "Go", 10)
	testutil.CreateClass(t, st.ClassRepo, "Go 101", crs, user.User{})

	tests := []httpTest{
		{
			name: "fields required", wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"course_name": ["this field is required"],
				"name": ["this field is required"],
				"status": ["this field is required"]
			}`),
		},
		{
			name: "unknown course", body: form("name", "Go 102", "status", "open", "course_name", "Cobol"),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"course_name": ["course not found"]}`),
		},
		{
			name: "unknown teacher", body: form("name", "Go 102", "status", "open", "course_name", "Go", "teacher_uuid", uuid.NewString()),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"teacher_uuid": ["user not found"]}`),
		},
		{
			name: "not a teacher", body: form("name", "Go 102", "status", "open", "course_name", "Go", "teacher_uuid", fx.std1.ID.String()),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"teacher_uuid": ["user is not a teacher"]}`),
		},
		{
			name: "name taken", body: form("name", "Go 101", "status", "open", "course_name", "Go"),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name": ["a class with this name already exists"]}`),
		},
		{
			name: "invalid student uuid", body: form("name", "Go 102", "status", "open", "course_name", "Go", "std_uuids", "lol"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: `"lol" is not a valid UUID`}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/v1/class/create"
	}
	runHTTPTests(t, app, tests)

	t.Run("unknown students are skipped", func(t *testing.T) {
		stdIDs := fx.std2.ID.String() + "," + uuid.NewString() + ", " + fx.std1.ID.String() + "," + fx.std2.ID.String()
		rec := serve(app, httpTest{
			method: http.MethodPost, path: "/api/v1/class/create",
			body: form(
				"name", "Go 102", "status", "open", "course_name", "Go",
				"teacher_uuid", fx.teacher.ID.String(), "std_uuids", stdIDs,
			),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res ClassCreatedResponse
		unmarshal(t, rec, &res)
		assert.True(t, res.TeacherAdded)
		assert.Equal(t, []uuid.UUID{fx.std2.ID, fx.std1.ID}, res.StudentsAdded)

		cls := getClass(t, st, res.UUID)
		assert.Equal(t, crs.ID, cls.Course)
		assert.Equal(t, uuid.NullUUID{UUID: fx.teacher.ID, Valid: true}, cls.Teacher)
		assert.ElementsMatch(t, res.StudentsAdded, cls.Students)
	})

	runHTTPTests(t, app, []httpTest{{
		name: "without teacher nor students", method: http.MethodPost, path: "/api/v1/class/create",
		body: form("name", "Go 103", "status", "open", "course_name", "Go", "std_uuids", uuid.NewString()),
		wantCode: http.StatusCreated,
	}})
}

func Test_classApi_students(t *testing.T) {
	app, st := newTestApp(t)
	fx := createClassFixtures(t, st)
	crs := testutil.CreateCourse(t, st.CourseRepo, "Go", 10)
	cls := testutil.CreateClass(t, st.ClassRepo, "Go 101", crs, fx.teacher, fx.std1)

	runHTTPTests(t, app, []httpTest{
		{
			name: "add to unknown class", method: http.MethodPost, path: "/api/v1/class/add-student",
			body:     form("name", "Go 102", "uuids", fx.std2.ID.String()),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "class not found"}),
		},
		{
			name: "add invalid uuid", method: http.MethodPost, path: "/api/v1/class/add-student",
			body:     form("name", "Go 101", "uuids", fx.std2.ID.String()+",lol"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: `"lol" is not a valid UUID`}),
		},
		{
			name: "add", method: http.MethodPost, path: "/api/v1/class/add-student",
			body:     form("name", "Go 101", "uuids", uuid.NewString()+","+fx.std2.ID.String()),
			wantCode: http.StatusAccepted,
			wantData: marshalObj(t, StudentsAddedResponse{Detail: "Ok", StudentsAdded: []uuid.UUID{fx.std2.ID}}),
		},
		{
			name: "add nobody", method: http.MethodPost, path: "/api/v1/class/add-student",
			body:     form("uuid", cls.ID.String(), "uuids", uuid.NewString()),
			wantCode: http.StatusAccepted, wantData: []byte(`{"detail": "Ok", "students_added": []}`),
		},
	})
	assert.ElementsMatch(t, []uuid.UUID{fx.std1.ID, fx.std2.ID}, getClass(t, st, cls.ID).Students)

	ghost := uuid.New()
	runHTTPTests(t, app, []httpTest{
		{
			name: "remove some unenrolled", method: http.MethodPost, path: "/api/v1/class/delete-student",
			body:     form("name", "Go 101", "uuids", fx.std1.ID.String()+","+ghost.String()+","+fx.teacher.ID.String()),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string][]string{"not_found": sortedStrings(ghost.String(), fx.teacher.ID.String())}),
		},
	})
	assert.ElementsMatch(t, []uuid.UUID{fx.std1.ID, fx.std2.ID}, getClass(t, st, cls.ID).Students, "nothing is removed")

	runHTTPTests(t, app, []httpTest{
		{
			name: "remove", method: http.MethodPost, path: "/api/v1/class/delete-student",
			body:     form("name", "Go 101", "uuids", fx.std1.ID.String()),
			wantCode: http.StatusAccepted, wantData: []byte(`{"detail": "Ok"}`),
		},
	})
	assert.Equal(t, []uuid.UUID{fx.std2.ID}, getClass(t, st, cls.ID).Students)
}

func Test_classApi_edit(t *testing.T) {
	app, st := newTestApp(t)
	fx := createClassFixtures(t, st)
	golang := testutil.CreateCourse(t, st.CourseRepo, "Go", 10)
	python := testutil.CreateCourse(t, st.CourseRepo, "Python", 30)
	cls := testutil.CreateClass(t, st.ClassRepo, "Go 101", golang, fx.teacher, fx.std1)
	testutil.CreateClass(t, st.ClassRepo, "Py 101", python, user.User{})
	path := "/api/v1/class/edit"

	tests := []httpTest{
		{
			name: "unknown class", body: form("target_name", "Go 102", "status", "closed"),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "class not found"}),
		},
		{
			name: "unknown course", body: form("uuid", cls.ID.String(), "course", "Cobol"),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"course": ["course not found"]}`),
		},
		{
			name: "not a teacher", body: form("uuid", cls.ID.String(), "teacher", fx.std2.ID.String()),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"teacher": ["user is not a teacher"]}`),
		},
		{
			name: "name taken", body: form("uuid", cls.ID.String(), "name", "Py 101"),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name": ["a class with this name already exists"]}`),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = path
	}
	runHTTPTests(t, app, tests)

	t.Run("not modified", func(t *testing.T) {
		rec := serve(app, httpTest{
			method: http.MethodPost, path: path,
			body: form("uuid", cls.ID.String(), "name", "Go 101", "course", "Go", "teacher", fx.teacher.ID.String()),
		})
		assert.Equal(t, http.StatusNotModified, rec.Code)
		assert.Equal(t, cls.UpdatedAt, getClass(t, st, cls.ID).UpdatedAt)
	})

	t.Run("modified", func(t *testing.T) {
		rec := serve(app, httpTest{
			method: http.MethodPost, path: path,
			body: form("target_name", "Go 101", "teacher", "", "status", "closed", "course", "Python", "name", "Go 201"),
		})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		var res struct {
			Detail   string      `json:"detail"`
			Modified []string    `json:"modified"`
			Data     class.Class `json:"data"`
		}
		unmarshal(t, rec, &res)
		assert.Equal(t, []string{"teacher", "status", "course", "name", "updated_at"}, res.Modified)
		assert.Equal(t, "Go 201", res.Data.Name)
		assert.False(t, res.Data.Teacher.Valid)

		got := getClass(t, st, cls.ID)
		assert.Equal(t, python.ID, got.Course)
		assert.Equal(t, "closed", got.Status)
		assert.Equal(t, []uuid.UUID{fx.std1.ID}, got.Students, "the roster is untouched")
	})
}

func Test_classApi_destroy(t *testing.T) {
	app, st := newTestApp(t)
	crs := testutil.CreateCourse(t, st.CourseRepo, "Go", 10)
	cls := testutil.CreateClass(t, st.ClassRepo, "Go 101", crs, user.User{})
	sch := testutil.CreateSchedule(t, st.ScheduleRepo, cls, 8, 10)

	runHTTPTests(t, app, []httpTest{
		{
			name: "invalid uuid", method: http.MethodPost, path: "/api/v1/class/delete", body: form("uuid", "lol"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: `"lol" is not a valid UUID`}),
		},
		{
			name: "deleted", method: http.MethodPost, path: "/api/v1/class/delete", body: form("name", "Go 101"),
			wantCode: http.StatusAccepted, wantData: marshalObj(t, ClassResponse{Detail: "Ok", Data: cls}),
		},
		{
			name: "gone", method: http.MethodPost, path: "/api/v1/class/delete", body: form("name", "Go 101"),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "class not found"}),
		},
	})

	_, err := st.ScheduleRepo.FindByUUID(testCtx, sch.ID)
	assert.Error(t, err, "schedules are deleted along with their class")
}

func Test_classApi_list(t *testing.T) {
	app, st := newTestApp(t)
	fx := createClassFixtures(t, st)
	crs := testutil.CreateCourse(t, st.CourseRepo, "Go", 10)
	go101 := testutil.CreateClass(t, st.ClassRepo, "Go 101", crs, fx.teacher, fx.std1, fx.std2)
	go102 := testutil.CreateClass(t, st.ClassRepo, "Go 102", crs, user.User{}, fx.std2)
	go103 := testutil.CreateClass(t, st.ClassRepo, "Go 103", crs, user.User{})

	two, one, zero := 2, 1, 0
	teacher := uuid.NullUUID{UUID: fx.teacher.ID, Valid: true}

	runHTTPTests(t, app, []httpTest{
		{
			name: "all", method: http.MethodGet, path: "/api/v1/class/list",
			wantData: marshalList(t,
				class.Summary{ID: go101.ID, Name: "Go 101", CourseName: "Go", TeacherName: "Teach", TeacherUUID: teacher, Status: "open", NumStudents: &two},
				class.Summary{ID: go102.ID, Name: "Go 102", CourseName: "Go", Status: "open", NumStudents: &one},
				class.Summary{ID: go103.ID, Name: "Go 103", CourseName: "Go", Status: "open", NumStudents: &zero},
			),
		},
		{
			name: "of student", method: http.MethodGet, path: "/api/v1/class/list?uuid=" + fx.std1.ID.String(),
			wantData: marshalList(t,
				class.Summary{Name: "Go 101", CourseName: "Go", TeacherName: "Teach", TeacherUUID: teacher, Status: "open"},
			),
		},
		{
			name: "of student without class", method: http.MethodGet, path: "/api/v1/class/list?uuid=" + fx.teacher.ID.String(),
			wantData: []byte(`[]`),
		},
		{
			name: "unknown student", method: http.MethodGet, path: "/api/v1/class/list?uuid=" + uuid.NewString(),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "invalid uuid", method: http.MethodGet, path: "/api/v1/class/list?uuid=lol",
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: `"lol" is not a valid UUID`}),
		},
	})
}
