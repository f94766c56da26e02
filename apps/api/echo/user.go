package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/crud"
	"github.com/trezcool/classroom/core/user"
)

var (
	errUsrNotFoundInCtx  = errors.New("user object not found in echo.Context")
	errNoPermsToSetRoles = "not enough rights to set these roles"

	userFields      = []string{"email", "mobile", "first_name", "mid_name", "last_name", "is_active", "roles", "password", "password_confirm"}
	adminUserFields = []string{"email", "mobile", "is_active", "roles"}
)

type userApi struct {
	svc *user.Service
	vld *core.Validator
}

func registerUserAPI(g *echo.Group, jwt []echo.MiddlewareFunc, svc *user.Service, vld *core.Validator) {
	api := userApi{svc: svc, vld: vld}

	ug := g.Group("/users")

	// un-authed endpoints
	// TODO: rate limit `/password-reset` & `/password-reset-confirm`
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt...)
	ag.POST("", api.create, adminMiddleware)
	ag.GET("", api.query, adminMiddleware)
	ag.DELETE("", api.destroyMultiple, adminMiddleware)
	ag.GET("/roles", api.queryRoles, adminMiddleware)

	// detail endpoints
	dg := ag.Group("/:uuid", ctxUserOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware)
	dg.PUT("/avatar", api.setAvatar)
	dg.GET("/avatar", api.avatar)
}

func getContextObject(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return user.User{}, errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return usr, nil
}

// checkRolesPriority makes sure ctxUsr does not grant a role above their own.
func checkRolesPriority(ctxUsr user.User, roles []string) error {
	if user.MaxRolePriority(roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewFieldError("roles", errNoPermsToSetRoles)
	}
	return nil
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	data := user.NewUser{
		Email:           ps.get("email"),
		Mobile:          ps.get("mobile"),
		FirstName:       ps.get("first_name"),
		MidName:         ps.get("mid_name"),
		LastName:        ps.get("last_name"),
		Password:        ps.get("password"),
		PasswordConfirm: ps.get("password_confirm"),
		Roles:           crud.SplitList(ps.get("roles")),
	}

	// ctxUser cannot set a role > their own max role
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := checkRolesPriority(ctxUsr, user.NormalizeRoles(data.Roles)); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	data := PasswordResetRequest{Email: core.CleanString(ps.get("email"), true /* lower */)}
	if err := api.vld.Struct(data).OrNil(); err != nil {
		return err
	}

	err = api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || core.IsNotFound(err) || errors.Cause(err) == user.ErrInactive) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	data := user.ResetUserPassword{
		UID:             ps.get("uid"),
		Token:           ps.get("token"),
		Password:        ps.get("password"),
		PasswordConfirm: ps.get("password_confirm"),
	}
	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) query(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	filter := &user.QueryFilter{Search: ps.get("search")}
	for _, role := range ps.all("role") {
		filter.Roles = append(filter.Roles, crud.SplitList(role)...)
	}
	if raw := core.CleanString(ps.get("is_active")); raw != "" {
		isActive, err := strconv.ParseBool(raw)
		if err != nil {
			return core.NewFieldError("is_active", "must be true or false")
		}
		filter.IsActive = &isActive
	}
	filter.Clean()

	users, err := api.svc.Query(ctx.Request().Context(), filter, ps.ordering(user.IsOrderingField))
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := getContextObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := getContextObject(ctx)
	if err != nil {
		return err
	}
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	cs := ps.changeSet(userFields)

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		// `Email`, `Mobile`, `IsActive` and `Roles` can only be changed by admin
		for _, field := range adminUserFields {
			if cs.Has(field) {
				return errHttpForbidden
			}
		}
	}

	// ctxUser cannot set a role > their own max role
	if raw, ok := cs.String("roles"); ok {
		if err := checkRolesPriority(ctxUsr, user.NormalizeRoles(crud.SplitList(raw))); err != nil {
			return err
		}
	}

	usr, modified, err := api.svc.Edit(ctx.Request().Context(), usr, cs)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	if len(modified) == 0 {
		return ctx.NoContent(http.StatusNotModified)
	}
	return ctx.JSON(http.StatusOK, ModifiedResponse{Detail: detailOk, Modified: modified, Data: usr})
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := getContextObject(ctx)
	if err != nil {
		return err
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) destroyMultiple(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	ids, err := crud.ParseIdentifiers(strings.Join(ps.all("uuid"), ","))
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	for _, id := range ids {
		if id == ctxUsr.ID {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) setAvatar(ctx echo.Context) error {
	usr, err := getContextObject(ctx)
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile("avatar")
	if err != nil {
		return core.NewFieldError("avatar", core.MsgRequired)
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening avatar")
	}
	defer f.Close()

	usr, err = api.svc.SetAvatar(ctx.Request().Context(), usr, f, fh.Filename)
	if err != nil {
		return errors.Wrap(err, "setting avatar")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) avatar(ctx echo.Context) error {
	usr, err := getContextObject(ctx)
	if err != nil {
		return err
	}
	rc, contentType, err := api.svc.OpenAvatar(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "opening avatar")
	}
	defer rc.Close()
	return ctx.Stream(http.StatusOK, contentType, rc)
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}
