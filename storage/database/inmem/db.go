// Package inmemdb implements the repositories in memory. It backs the tests and the `inmem` database engine.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/schedule"
	"github.com/trezcool/classroom/core/user"
)

// DB holds every table behind a single lock, so that each repository call is atomic.
type DB struct {
	mutex     sync.RWMutex
	users     map[uuid.UUID]user.User
	courses   map[uuid.UUID]course.Course
	classes   map[uuid.UUID]class.Class
	schedules map[uuid.UUID]schedule.Schedule
}

func NewDB() *DB {
	db := new(DB)
	db.reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.users = make(map[uuid.UUID]user.User)
	db.courses = make(map[uuid.UUID]course.Course)
	db.classes = make(map[uuid.UUID]class.Class)
	db.schedules = make(map[uuid.UUID]schedule.Schedule)
}

// deleteClass removes a class and its schedules. The caller must hold the write lock.
func (db *DB) deleteClass(id uuid.UUID) {
	delete(db.classes, id)
	for schID, sch := range db.schedules {
		if sch.Classroom == id {
			delete(db.schedules, schID)
		}
	}
}

// the stored values never share memory with the ones handed out

func cloneStrings(s []string) []string {
	return append([]string{}, s...)
}

func cloneUUIDs(ids []uuid.UUID) []uuid.UUID {
	return append([]uuid.UUID{}, ids...)
}

func cloneUser(usr user.User) user.User {
	usr.Roles = cloneStrings(usr.Roles)
	usr.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	return usr
}

func cloneCourse(crs course.Course) course.Course {
	crs.Tags = cloneStrings(crs.Tags)
	return crs
}

func cloneClass(cls class.Class) class.Class {
	cls.Students = cloneUUIDs(cls.Students)
	return cls
}
