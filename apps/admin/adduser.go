package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core/crud"
	"github.com/trezcool/classroom/core/user"
)

// addUser creates an active user, or reactivates the existing one owning nu.Email and resets its password.
func (cli *commandLine) addUser(nu user.NewUser, isAdmin bool) (user.User, error) {
	ctx := context.Background()
	if isAdmin {
		nu.Roles = user.AllRoles
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, nu.Email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, err
		}
		return cli.usrSvc.Create(ctx, nu)
	}

	cs := crud.ChangeSet{
		{Field: "is_active", Value: true},
		{Field: "password", Value: nu.Password},
		{Field: "password_confirm", Value: nu.PasswordConfirm},
	}
	if isAdmin {
		cs = append(cs, crud.Change{Field: "roles", Value: nu.Roles})
	}
	usr, _, err = cli.usrSvc.Edit(ctx, usr, cs)
	return usr, err
}
