package main

import (
	"context"

	"github.com/trezcool/classroom/core/crud"
)

func (cli *commandLine) resetPassword(email, pwd, confirm string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, _, err = cli.usrSvc.Edit(ctx, usr, crud.ChangeSet{
		{Field: "password", Value: pwd},
		{Field: "password_confirm", Value: confirm},
	})
	return err
}
