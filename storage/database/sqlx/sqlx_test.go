package sqlxrepos_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/schedule"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/storage/database"
	sqlxrepos "github.com/trezcool/classroom/storage/database/sqlx"
	"github.com/trezcool/classroom/testutil"
)

// prepareDB connects to TEST_DATABASE_URL, migrates it and empties every table after the test.
func prepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, database.Migrate(db, "up"))

	t.Cleanup(func() {
		_, err := db.Exec(`TRUNCATE schedule, class_student, class, course, "user"`)
		assert.NoError(t, err)
		_ = db.Close()
	})
	return db
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(prepareDB(t))

	awe := testutil.CreateUser(t, repo, "Awe", "awe@test.cd", "0810000000", testutil.Password, []string{user.RoleTeacher}, true)
	joe := testutil.CreateUser(t, repo, "Joe", "joe@test.cd", "0810000001", "", []string{user.RoleStudent}, false)

	assert.Equal(t, user.ErrEmailExists, repo.CheckUniqueness(ctx, awe.Email, "0899999999"))
	assert.Equal(t, user.ErrMobileExists, repo.CheckUniqueness(ctx, "new@test.cd", awe.Mobile))
	assert.NoError(t, repo.CheckUniqueness(ctx, awe.Email, awe.Mobile, awe.ID))

	got, err := repo.FindByEmail(ctx, awe.Email)
	require.NoError(t, err)
	assert.Equal(t, awe.ID, got.ID)
	assert.Equal(t, []string{user.RoleTeacher}, got.Roles)
	assert.NoError(t, got.CheckPassword(testutil.Password))

	_, err = repo.FindByUUID(ctx, uuid.New())
	assert.Equal(t, user.ErrNotFound, err)

	active := true
	users, err := repo.QueryUsers(ctx, &user.QueryFilter{IsActive: &active}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, awe.ID, users[0].ID)

	users, err = repo.QueryUsers(ctx, &user.QueryFilter{Search: "JOE"}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, joe.ID, users[0].ID)

	ids, err := repo.Existing(ctx, []uuid.UUID{joe.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{joe.ID}, ids)

	joe.LastName = "Doe"
	_, err = repo.UpdateUser(ctx, joe)
	require.NoError(t, err)
	got, err = repo.FindByUUID(ctx, joe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Doe", got.LastName)

	require.NoError(t, repo.DeleteUsers(ctx, joe.ID))
	_, err = repo.FindByUUID(ctx, joe.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestCourseRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewCourseRepository(prepareDB(t))

	algebra := testutil.CreateCourse(t, repo, "Algebra", 30, "math", "science")
	testutil.CreateCourse(t, repo, "Biology", 20, "science", "Life")

	exists, err := repo.NameExists(ctx, "Algebra", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.NameExists(ctx, "Algebra", algebra.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := repo.FindByName(ctx, "Algebra")
	require.NoError(t, err)
	assert.Equal(t, algebra.ID, got.ID)
	assert.Equal(t, []string{"math", "science"}, got.Tags)

	counts, err := repo.CountTags(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []course.TagCount{{Name: "science", NumTimes: 2}, {Name: "Life", NumTimes: 1}}, counts)

	tags, err := repo.TagsWithPrefix(ctx, "S")
	require.NoError(t, err)
	assert.Equal(t, []string{"science"}, tags)

	require.NoError(t, repo.DeleteCourse(ctx, algebra.ID))
	_, err = repo.FindByUUID(ctx, algebra.ID)
	assert.Equal(t, course.ErrNotFound, err)
}

func TestClassAndScheduleRepositories(t *testing.T) {
	ctx := context.Background()
	db := prepareDB(t)
	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	classes := sqlxrepos.NewClassRepository(db)
	schedules := sqlxrepos.NewScheduleRepository(db)

	teacher := testutil.CreateUser(t, users, "Teach", "teach@test.cd", "0810000000", "", []string{user.RoleTeacher}, true)
	std1 := testutil.CreateUser(t, users, "One", "one@test.cd", "0810000001", "", []string{user.RoleStudent}, true)
	std2 := testutil.CreateUser(t, users, "Two", "two@test.cd", "0810000002", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, courses, "Algebra", 30)
	cls := testutil.CreateClass(t, classes, "Algebra 1", crs, teacher, std1)

	require.NoError(t, classes.AddStudents(ctx, cls.ID, []uuid.UUID{std1.ID, std2.ID}))
	got, err := classes.FindByName(ctx, "Algebra 1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{std1.ID, std2.ID}, got.Students)

	err = classes.RemoveStudents(ctx, cls.ID, []uuid.UUID{std2.ID, teacher.ID})
	require.IsType(t, &core.PartialMatchError{}, err)
	assert.Equal(t, []string{teacher.ID.String()}, err.(*core.PartialMatchError).Missing)
	got, err = classes.FindByUUID(ctx, cls.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{std1.ID, std2.ID}, got.Students)

	sums, err := classes.ListSummaries(ctx, uuid.NullUUID{})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	require.NotNil(t, sums[0].NumStudents)
	assert.Equal(t, 2, *sums[0].NumStudents)
	assert.Equal(t, "Algebra", sums[0].CourseName)

	require.NoError(t, classes.RemoveStudents(ctx, cls.ID, []uuid.UUID{std1.ID}))
	sums, err = classes.ListSummaries(ctx, uuid.NullUUID{UUID: std1.ID, Valid: true})
	require.NoError(t, err)
	assert.Empty(t, sums)

	late := testutil.CreateSchedule(t, schedules, cls, 10, 12)
	early := testutil.CreateSchedule(t, schedules, cls, 8, 10, "intro")

	list, err := schedules.QuerySchedules(ctx, schedule.Filter{Student: uuid.NullUUID{UUID: std2.ID, Valid: true}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)
	assert.Equal(t, "intro", list[0].Desc.String)

	// deleting a user unassigns them as teacher
	require.NoError(t, users.DeleteUsers(ctx, teacher.ID))
	got, err = classes.FindByUUID(ctx, cls.ID)
	require.NoError(t, err)
	assert.False(t, got.Teacher.Valid)

	// deleting the course cascades to its classes and their schedules
	require.NoError(t, courses.DeleteCourse(ctx, crs.ID))
	_, err = classes.FindByUUID(ctx, cls.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = schedules.FindByUUID(ctx, early.ID)
	assert.True(t, core.IsNotFound(err))
}
