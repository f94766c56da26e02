package user

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/crud"
)

const (
	avatarMaxSize  = 5 << 20 // 5MB
	fieldPassword  = "password"
	fieldPwdConfrm = "password_confirm"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("User")
	ErrInactive           = errors.New("user inactive")
	ErrInvalidCredentials = errors.New("no matching credentials")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrMobileExists       = errors.New("a user with this mobile already exists")

	msgAvatarTooLarge = fmt.Sprintf("avatar must not exceed %dMB", avatarMaxSize>>20)
	msgAvatarNotImage = "avatar must be an image"
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrMobileExists when another user (not in excluded) already uses them.
		CheckUniqueness(ctx context.Context, email, mobile string, excluded ...uuid.UUID) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of the names, the email or the mobile.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		FindByUUID(ctx context.Context, id uuid.UUID) (User, error)
		FindByEmail(ctx context.Context, email string) (User, error)
		// Existing returns the ids of ids that belong to a user.
		Existing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsers(ctx context.Context, ids ...uuid.UUID) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		avatars core.BlobStore
		vld     *core.Validator
		tokens  tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, avatars core.BlobStore, vld *core.Validator, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		avatars: avatars,
		vld:     vld,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email, mobile string, excluded ...uuid.UUID) *core.ValidationError {
	verr := core.NewValidationError(nil)
	if err := svc.repo.CheckUniqueness(ctx, email, mobile, excluded...); err != nil {
		switch err {
		case ErrEmailExists:
			verr.Add("email", err.Error())
		case ErrMobileExists:
			verr.Add("mobile", err.Error())
		default:
			verr.Err = err
		}
	}
	return verr
}

// validate runs the full validation of usr before it gets saved.
func (svc *Service) validate(ctx context.Context, usr User) error {
	verr := svc.vld.Struct(usr)
	uniq := svc.checkUniqueness(ctx, usr.Email, usr.Mobile, usr.ID)
	if uniq.Err != nil {
		return errors.Wrap(uniq.Err, "checking user uniqueness")
	}
	verr.Merge(uniq)
	return verr.OrNil()
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	verr := svc.vld.Struct(nu)
	uniq := svc.checkUniqueness(ctx, nu.Email, nu.Mobile)
	if uniq.Err != nil {
		return User{}, errors.Wrap(uniq.Err, "checking user uniqueness")
	}
	verr.Merge(uniq)
	if err := verr.OrNil(); err != nil {
		return User{}, err
	}

	now := core.Now()
	usr := User{
		ID:        uuid.New(),
		Email:     nu.Email,
		Mobile:    nu.Mobile,
		FirstName: nu.FirstName,
		MidName:   nu.MidName,
		LastName:  nu.LastName,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// Get finds a User by its UUID.
func (svc *Service) Get(ctx context.Context, id string) (User, error) {
	return crud.Locate[User](ctx, svc.repo, crud.Key{UUID: id}, ErrNotFound)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.FindByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Authenticate checks the credentials of an active User and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, ErrInactive
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return svc.SetLastLogin(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(core.Now())
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

// Edit applies cs onto usr and saves it when anything changed.
// A `password` change (with its `password_confirm`) goes through the password policy.
func (svc *Service) Edit(ctx context.Context, usr User, cs crud.ChangeSet) (User, []string, error) {
	modified, err := crud.Apply(&usr, cs.Without(fieldPassword, fieldPwdConfrm))
	if err != nil {
		return User{}, nil, err
	}

	if pwd, ok := cs.String(fieldPassword); ok {
		confirm, _ := cs.String(fieldPwdConfrm)
		pc := PasswordChange{
			Email:           usr.Email,
			FirstName:       usr.FirstName,
			LastName:        usr.LastName,
			Password:        pwd,
			PasswordConfirm: confirm,
		}
		if err := svc.vld.Struct(pc).OrNil(); err != nil {
			return User{}, nil, err
		}
		if err := usr.SetPassword(pwd); err != nil {
			return User{}, nil, errors.Wrap(err, "setting password")
		}
		modified = append(modified, fieldPassword)
	}

	if len(modified) == 0 {
		return usr, modified, nil
	}
	usr.UpdatedAt = core.Now()
	modified = append(modified, crud.FieldUpdatedAt)

	if err := svc.validate(ctx, usr); err != nil {
		return User{}, nil, err
	}
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, nil, errors.Wrap(err, "updating user")
	}
	return usr, modified, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...uuid.UUID) error {
	return svc.repo.DeleteUsers(ctx, ids...)
}

// avatarKey mirrors the `images/profile/%Y/%m/%d/` upload layout.
func avatarKey(usr User, ext string) string {
	now := core.Now()
	return fmt.Sprintf("images/profile/%04d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), usr.ID, strings.ToLower(ext))
}

// SetAvatar stores the image read from r as usr's avatar, replacing the previous one.
func (svc *Service) SetAvatar(ctx context.Context, usr User, r io.Reader, filename string) (User, error) {
	data, err := io.ReadAll(io.LimitReader(r, avatarMaxSize+1))
	if err != nil {
		return User{}, errors.Wrap(err, "reading avatar")
	}
	if len(data) > avatarMaxSize {
		return User{}, core.NewFieldError("avatar", msgAvatarTooLarge)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return User{}, core.NewFieldError("avatar", msgAvatarNotImage)
	}

	key := avatarKey(usr, path.Ext(filename))
	if err := svc.avatars.Put(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return User{}, errors.Wrap(err, "storing avatar")
	}

	prev := usr.Avatar
	usr.Avatar = null.StringFrom(key)
	usr.UpdatedAt = core.Now()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}
	if prev.Valid && prev.String != key {
		if err := svc.avatars.Delete(ctx, prev.String); err != nil && !core.IsNotFound(err) {
			return User{}, errors.Wrap(err, "deleting previous avatar")
		}
	}
	return usr, nil
}

// OpenAvatar returns usr's avatar content and its content type. The caller must close the reader.
func (svc *Service) OpenAvatar(ctx context.Context, usr User) (io.ReadCloser, string, error) {
	if !usr.Avatar.Valid {
		return nil, "", core.ErrBlobNotFound
	}
	return svc.avatars.Get(ctx, usr.Avatar.String)
}

// RequestPasswordReset emails a password reset link to the active User owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrInactive
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.FullName(),
			"UID":   EncodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

// ResetPassword sets a new password for the User identified by the reset token.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	if err := svc.vld.Struct(data).OrNil(); err != nil {
		return User{}, err
	}

	invalidToken := core.NewValidationError(errInvalidToken)
	id, err := decodeUID(data.UID)
	if err != nil {
		return User{}, invalidToken
	}
	usr, err := svc.repo.FindByUUID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, invalidToken
		}
		return User{}, errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return User{}, core.NewValidationError(err)
	}

	pc := PasswordChange{
		Email:           usr.Email,
		FirstName:       usr.FirstName,
		LastName:        usr.LastName,
		Password:        data.Password,
		PasswordConfirm: data.PasswordConfirm,
	}
	if err := svc.vld.Struct(pc).OrNil(); err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}
