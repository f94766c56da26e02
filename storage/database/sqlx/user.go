package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

const userColumns = `id, email, mobile, first_name, mid_name, last_name, is_active, roles, password_hash, avatar, last_login, created_at, updated_at`

type userRow struct {
	ID           uuid.UUID      `db:"id"`
	Email        string         `db:"email"`
	Mobile       string         `db:"mobile"`
	FirstName    string         `db:"first_name"`
	MidName      string         `db:"mid_name"`
	LastName     string         `db:"last_name"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	Avatar       null.String    `db:"avatar"`
	LastLogin    null.Time      `db:"last_login"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:           row.ID,
		Email:        row.Email,
		Mobile:       row.Mobile,
		FirstName:    row.FirstName,
		MidName:      row.MidName,
		LastName:     row.LastName,
		IsActive:     row.IsActive,
		Roles:        append([]string{}, row.Roles...),
		PasswordHash: row.PasswordHash,
		Avatar:       row.Avatar,
		LastLogin:    row.LastLogin,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	db core.DB
}

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, email, mobile string, excluded ...uuid.UUID) error {
	var taken []struct {
		Email  bool `db:"email_taken"`
		Mobile bool `db:"mobile_taken"`
	}
	q := `SELECT email = $1 AS email_taken, mobile = $2 AS mobile_taken FROM "user"
		WHERE (email = $1 OR mobile = $2) AND NOT (id = ANY($3::uuid[]))`
	if err := repo.db.SelectContext(ctx, &taken, q, email, mobile, uuidArray(excluded)); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	var mobileTaken bool
	for _, t := range taken {
		if t.Email {
			return user.ErrEmailExists
		}
		mobileTaken = mobileTaken || t.Mobile
	}
	if mobileTaken {
		return user.ErrMobileExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO "user" (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := repo.db.ExecContext(ctx, q,
		usr.ID, usr.Email, usr.Mobile, usr.FirstName, usr.MidName, usr.LastName, usr.IsActive,
		stringArray(usr.Roles), usr.PasswordHash, usr.Avatar, usr.LastLogin, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		ph    placeholders
		conds []string
	)
	if filter != nil {
		if filter.Search != "" {
			p := ph.add("%" + escapeLike(filter.Search) + "%")
			conds = append(conds, "(first_name ILIKE "+p+" OR mid_name ILIKE "+p+" OR last_name ILIKE "+p+
				" OR email ILIKE "+p+" OR mobile ILIKE "+p+")")
		}
		if len(filter.Roles) > 0 {
			patterns := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				patterns = append(patterns, escapeLike(role)+"%")
			}
			conds = append(conds, "EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ANY("+ph.add(pq.StringArray(patterns))+"))")
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+ph.add(*filter.IsActive))
		}
	}

	q := `SELECT ` + userColumns + ` FROM "user"`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) == 0 {
		ordering = user.DefaultOrdering
	}
	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if user.IsOrderingField(ord.Field) {
			orderBy = append(orderBy, ord.String()+" NULLS LAST")
		}
	}
	orderBy = append(orderBy, "id ASC")
	q += " ORDER BY " + strings.Join(orderBy, ", ")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, ph.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) findOne(ctx context.Context, cond string, arg interface{}) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE ` + cond + ` = $1`
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) FindByUUID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return repo.findOne(ctx, "id", id)
}

func (repo *userRepository) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.findOne(ctx, "email", email)
}

func (repo *userRepository) Existing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	q := `SELECT id FROM "user" WHERE id = ANY($1::uuid[])`
	if err := repo.db.SelectContext(ctx, &found, q, uuidArray(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting existing users")
	}
	return found, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET email = $2, mobile = $3, first_name = $4, mid_name = $5, last_name = $6, is_active = $7,
		roles = $8, password_hash = $9, avatar = $10, last_login = $11, updated_at = $12 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		usr.ID, usr.Email, usr.Mobile, usr.FirstName, usr.MidName, usr.LastName, usr.IsActive,
		stringArray(usr.Roles), usr.PasswordHash, usr.Avatar, usr.LastLogin, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err := checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

// DeleteUsers relies on the foreign keys to clean the rosters and unassign the teachers.
func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...uuid.UUID) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1::uuid[])`, uuidArray(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
