package main

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Stack) {
	st := testutil.NewStack(t)
	return &commandLine{usrSvc: st.UserSvc}, st
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

// mockPassword makes readPasswordFunc answer pwd then confirm.
func mockPassword(t *testing.T, pwd, confirm string) {
	answers := []string{pwd, confirm}
	readPasswordFunc = func(fd int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, nil
		}
		ans := answers[0]
		answers = answers[1:]
		return []byte(ans), nil
	}
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var lastCommand string
	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		lastCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "attendance", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
				assert.Equal(t, tt.args[1], lastCommand)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, st := setup(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, st.UserRepo, "Awe", "awe@test.cd", "0810000000", "", []string{user.RoleStudent}, false)

	type extra struct {
		pwd, confirm string
	}
	pwd := extra{pwd: testutil.Password, confirm: testutil.Password}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
		{name: "no mobile", args: []string{"adduser", "-email", "new@test.cd"}, extra: pwd, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "new@test.cd", "-mobile", "0820000000"}, wantErr: errHelp},
		{
			name:       "weak password",
			args:       []string{"adduser", "-email", "new@test.cd", "-mobile", "0820000000"},
			extra:      extra{pwd: "lol", confirm: "lol"},
			wantErrStr: "password must contain at least 8 characters",
		},
		{name: "created", args: []string{"adduser", "-email", "New@test.cd", "-mobile", "0820000000", "-first_name", "Neo", "-admin"}, extra: pwd},
		{name: "existing reactivated", args: []string{"adduser", "-email", existing.Email, "-mobile", existing.Mobile, "-admin"}, extra: pwd},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if e, ok := tt.extra.(extra); ok {
				mockPassword(t, e.pwd, e.confirm)
			} else {
				mockPassword(t, "", "")
			}

			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				verr, ok := err.(*core.ValidationError)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, map[string][]string{"password": {tt.wantErrStr}}, verr.FieldMessages())
			default:
				require.NoError(t, err)
			}
		})
	}

	created, err := st.UserSvc.GetByEmail(ctx, "new@test.cd")
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.True(t, created.IsAdmin())
	assert.Equal(t, "Neo", created.FirstName)
	assert.NoError(t, created.CheckPassword(testutil.Password))

	reactivated, err := st.UserSvc.GetByEmail(ctx, existing.Email)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive)
	assert.ElementsMatch(t, user.NormalizeRoles(user.AllRoles), reactivated.Roles)
	assert.NoError(t, reactivated.CheckPassword(testutil.Password))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, st := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, st.UserRepo, "User", "awe@test.cd", "0810000000", "", nil, true)

	type extra struct {
		pwd, confirm string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", usr.Email}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{"Lol-l0l-lol", "Lol-l0l-lol"}, wantErr: user.ErrNotFound},
		{name: "password mismatch", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{testutil.Password, "nope"}, wantErrStr: "password_confirm"},
		{name: "reset", args: []string{"resetpassword", "-email", " AWE@test.cd "}, extra: extra{testutil.Password, testutil.Password}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if e, ok := tt.extra.(extra); ok {
				mockPassword(t, e.pwd, e.confirm)
			} else {
				mockPassword(t, "", "")
			}

			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				verr, ok := err.(*core.ValidationError)
				require.True(t, ok, "got %v", err)
				assert.Contains(t, verr.FieldMessages(), tt.wantErrStr)
			default:
				require.NoError(t, err)
				refreshed, err := st.UserSvc.Get(ctx, usr.ID.String())
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(testutil.Password))
			}
		})
	}
}
