package user

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/crud"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Teachers: 20 - 11
		RoleTeacher: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Principal", Value: RoleAdminPrincipal},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// NormalizeRoles trims, sorts and deduplicates roles.
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = core.CleanString(role, true /* lower */)
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           uuid.UUID   `json:"uuid"`
	Email        string      `json:"email" validate:"required,email,max=254"`
	Mobile       string      `json:"mobile" validate:"required,max=20"`
	FirstName    string      `json:"first_name" validate:"max=50"`
	MidName      string      `json:"mid_name" validate:"max=50"`
	LastName     string      `json:"last_name" validate:"max=50"`
	IsActive     bool        `json:"is_active"`
	Roles        []string    `json:"roles" validate:"allroles"`
	Avatar       null.String `json:"avatar"`
	PasswordHash []byte      `json:"-"`
	LastLogin    null.Time   `json:"last_login"` // UTC
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

func (u *User) EditableFields() []crud.Field {
	return []crud.Field{
		crud.LowerString("email", &u.Email),
		crud.String("mobile", &u.Mobile),
		crud.String("first_name", &u.FirstName),
		crud.String("mid_name", &u.MidName),
		crud.String("last_name", &u.LastName),
		crud.Bool("is_active", &u.IsActive),
		crud.StringList("roles", &u.Roles, NormalizeRoles),
	}
}

// FullName joins the non-blank name parts: last, middle then first name.
func (u User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.LastName, u.MidName, u.FirstName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsTeacher() bool {
	return u.RoleStartsWith(RoleTeacher)
}

func (u *User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Email           string   `json:"email" validate:"required,email,max=254"`
	Mobile          string   `json:"mobile" validate:"required,max=20"`
	FirstName       string   `json:"first_name" validate:"max=50"`
	MidName         string   `json:"mid_name" validate:"max=50"`
	LastName        string   `json:"last_name" validate:"max=50"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Clean() {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Mobile = core.CleanString(nu.Mobile)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.MidName = core.CleanString(nu.MidName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Roles = NormalizeRoles(nu.Roles)
}

// PasswordChange is validated against the password policy before a User's password gets replaced.
type PasswordChange struct {
	Email           string `json:"-"`
	FirstName       string `json:"-"`
	LastName        string `json:"-"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Search   string
	Roles    []string
	IsActive *bool
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields are the fields users can be ordered by.
var OrderingFields = []string{"email", "mobile", "first_name", "last_name", "is_active", "last_login", "created_at", "updated_at"}

// DefaultOrdering applies when no ordering is requested.
var DefaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: true}, {Field: "email", Ascending: true}}

func IsOrderingField(field string) bool {
	for _, f := range OrderingFields {
		if f == field {
			return true
		}
	}
	return false
}
