package user

import (
	"strings"

	"github.com/trezcool/classroom/core"
)

// Policy decides which users may be assigned to a class as its teacher.
type Policy interface {
	IsTeacher(usr User) bool
}

// RolePolicy grants the teacher capability to active users holding a role that starts with one of TeacherRoles.
type RolePolicy struct {
	TeacherRoles []string
}

var _ Policy = RolePolicy{}

func NewRolePolicy(conf core.PolicyConfig) RolePolicy {
	return RolePolicy{TeacherRoles: conf.TeacherRoles}
}

func (p RolePolicy) IsTeacher(usr User) bool {
	if !usr.IsActive {
		return false
	}
	for _, role := range usr.Roles {
		for _, prefix := range p.TeacherRoles {
			if strings.HasPrefix(role, prefix) {
				return true
			}
		}
	}
	return false
}
