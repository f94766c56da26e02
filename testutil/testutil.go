// Package testutil builds the in-memory application stack used by the tests.
package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/schedule"
	"github.com/trezcool/classroom/core/user"
	appfs "github.com/trezcool/classroom/fs"
	emailsvc "github.com/trezcool/classroom/services/email"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/storage/blob"
	inmemdb "github.com/trezcool/classroom/storage/database/inmem"
)

// Password satisfies the password policy.
const Password = "Sup3r-S3cret!"

// NewConfig returns the TEST configuration; blobRoot is the root of the fs blob store.
func NewConfig(blobRoot string) *core.Config {
	return &core.Config{
		AppName:                   "Masomo",
		Build:                     "test",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 "test-secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Masomo", Address: "noreply@masomo.cd"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			Host:                      ":8000",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        15 * time.Minute,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: core.EngineInmem},
		Blob:     core.BlobConfig{Driver: core.BlobDriverFS, Root: blobRoot},
		Policy:   core.PolicyConfig{TeacherRoles: []string{user.RoleTeacher}},
	}
}

func NewValidator() *core.Validator {
	return core.NewValidator(user.InitValidators, schedule.InitValidators)
}

// NewLogger returns a silent logger that never reports to Rollbar.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	return logger
}

// Stack is a fully wired application on top of the in-memory database.
type Stack struct {
	Conf      *core.Config
	Logger    core.Logger
	Validator *core.Validator
	DB        *inmemdb.DB
	Mail      *emailsvc.ConsoleServiceMock
	Blob      core.BlobStore

	UserRepo     user.Repository
	CourseRepo   course.Repository
	ClassRepo    class.Repository
	ScheduleRepo schedule.Repository

	UserSvc     *user.Service
	CourseSvc   *course.Service
	ClassSvc    *class.Service
	ScheduleSvc *schedule.Service
}

func NewStack(t testing.TB) *Stack {
	t.Helper()

	conf := NewConfig(t.TempDir())
	logger := NewLogger(conf)
	vld := NewValidator()

	tmpls, err := core.ParseEmailTemplates(appfs.FS, conf)
	if err != nil {
		t.Fatalf("ParseEmailTemplates(): %v", err)
	}
	store, err := blob.Open(context.Background(), conf.Blob)
	if err != nil {
		t.Fatalf("blob.Open(): %v", err)
	}

	db := inmemdb.NewDB()
	st := &Stack{
		Conf:         conf,
		Logger:       logger,
		Validator:    vld,
		DB:           db,
		Mail:         emailsvc.NewConsoleServiceMock(conf, tmpls, logger),
		Blob:         store,
		UserRepo:     inmemdb.NewUserRepository(db),
		CourseRepo:   inmemdb.NewCourseRepository(db),
		ClassRepo:    inmemdb.NewClassRepository(db),
		ScheduleRepo: inmemdb.NewScheduleRepository(db),
	}
	st.UserSvc = user.NewService(st.UserRepo, st.Mail, st.Blob, vld, conf)
	st.CourseSvc = course.NewService(st.CourseRepo, vld)
	st.ClassSvc = class.NewService(st.ClassRepo, st.CourseRepo, st.UserRepo, user.NewRolePolicy(conf.Policy), vld)
	st.ScheduleSvc = schedule.NewService(st.ScheduleRepo, st.ClassRepo, st.UserRepo, vld)
	return st
}

func CreateUser(
	t testing.TB,
	repo user.Repository,
	firstName, email, mobile, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		ID:        uuid.New(),
		Email:     email,
		Mobile:    mobile,
		FirstName: firstName,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t testing.TB, repo course.Repository, name string, duration int, tags ...string) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs := course.Course{
		ID:        uuid.New(),
		Name:      name,
		Duration:  duration,
		Tags:      course.NormalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

// CreateClass saves a class of crs; teacher may be the zero User.
func CreateClass(t testing.TB, repo class.Repository, name string, crs course.Course, teacher user.User, students ...user.User) class.Class {
	t.Helper()

	now := time.Now().UTC()
	cls := class.Class{
		ID:        uuid.New(),
		Name:      name,
		Status:    "open",
		Course:    crs.ID,
		Students:  make([]uuid.UUID, 0, len(students)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if teacher.ID != uuid.Nil {
		cls.Teacher = uuid.NullUUID{UUID: teacher.ID, Valid: true}
	}
	for _, std := range students {
		cls.Students = append(cls.Students, std.ID)
	}
	cls, err := repo.CreateClass(context.Background(), cls)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateSchedule(t testing.TB, repo schedule.Repository, cls class.Class, start, end int, desc ...string) schedule.Schedule {
	t.Helper()

	now := time.Now().UTC()
	sch := schedule.Schedule{
		ID:        uuid.New(),
		Classroom: cls.ID,
		TimeStart: start,
		TimeEnd:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(desc) > 0 {
		sch.Desc = null.StringFrom(desc[0])
	}
	sch, err := repo.CreateSchedule(context.Background(), sch)
	if err != nil {
		t.Fatalf("CreateSchedule() failed: %v", err)
	}
	return sch
}
