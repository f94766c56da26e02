package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func containsID(id uuid.UUID, ids []uuid.UUID) bool {
	for _, other := range ids {
		if other == id {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUniqueness(_ context.Context, email, mobile string, excluded ...uuid.UUID) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var mobileTaken bool
	for _, usr := range repo.db.users {
		if containsID(usr.ID, excluded) {
			continue
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
		if usr.Mobile == mobile {
			mobileTaken = true
		}
	}
	if mobileTaken {
		return user.ErrMobileExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.users[usr.ID] = cloneUser(usr)
	return cloneUser(usr), nil
}

func matchesFilter(usr user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if len(filter.Roles) > 0 {
		var hasRole bool
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				hasRole = true
				break
			}
		}
		if !hasRole {
			return false
		}
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		for _, val := range []string{usr.FirstName, usr.MidName, usr.LastName, usr.Email, usr.Mobile} {
			if strings.Contains(strings.ToLower(val), search) {
				return true
			}
		}
		return false
	}
	return true
}

// compareUsers compares a & b on field; NULL last logins come last.
func compareUsers(a, b user.User, field string) int {
	switch field {
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "mobile":
		return strings.Compare(a.Mobile, b.Mobile)
	case "first_name":
		return strings.Compare(a.FirstName, b.FirstName)
	case "last_name":
		return strings.Compare(a.LastName, b.LastName)
	case "is_active":
		switch {
		case a.IsActive == b.IsActive:
			return 0
		case b.IsActive:
			return -1
		}
		return 1
	case "last_login":
		switch {
		case !a.LastLogin.Valid && !b.LastLogin.Valid:
			return 0
		case !a.LastLogin.Valid:
			return 1
		case !b.LastLogin.Valid:
			return -1
		}
		return a.LastLogin.Time.Compare(b.LastLogin.Time)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if matchesFilter(usr, filter) {
			users = append(users, cloneUser(usr))
		}
	}

	if len(ordering) == 0 {
		ordering = user.DefaultOrdering
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareUsers(users[i], users[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return users, nil
}

func (repo *userRepository) FindByUUID(_ context.Context, id uuid.UUID) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return cloneUser(usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FindByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return cloneUser(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) Existing(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	found := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := repo.db.users[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = cloneUser(usr)
	return cloneUser(usr), nil
}

// DeleteUsers also removes the users from the rosters and unassigns them as teachers.
func (repo *userRepository) DeleteUsers(_ context.Context, ids ...uuid.UUID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
	}
	for clsID, cls := range repo.db.classes {
		if cls.Teacher.Valid && containsID(cls.Teacher.UUID, ids) {
			cls.Teacher = uuid.NullUUID{}
		}
		students := make([]uuid.UUID, 0, len(cls.Students))
		for _, std := range cls.Students {
			if !containsID(std, ids) {
				students = append(students, std)
			}
		}
		cls.Students = students
		repo.db.classes[clsID] = cls
	}
	return nil
}
