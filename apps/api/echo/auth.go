package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Type    string   `json:"typ"`
	UUID    string   `json:"uuid"`
	IsAdmin bool     `json:"is_admin,omitempty"` // -> ADMIN PORTAL
	Roles   []string `json:"roles,omitempty"`
}

type (
	TokenPair struct {
		Refresh string `json:"refresh,omitempty"`
		Access  string `json:"access"`
	}

	TokenResponse struct {
		Token TokenPair `json:"token"`
	}
)

// TokenIssuer signs and checks the HS256 access and refresh tokens.
type TokenIssuer struct {
	issuer     string
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(conf *core.Config) TokenIssuer {
	return TokenIssuer{
		issuer:     conf.AppName,
		key:        []byte(conf.SecretKey),
		accessTTL:  conf.Server.JWTExpirationDelta,
		refreshTTL: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (ti TokenIssuer) middlewareConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    ti.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// UserClaims returns the claims of a token of type typ issued to usr.
func (ti TokenIssuer) UserClaims(usr user.User, typ string) *Claims {
	now := time.Now()
	ttl := ti.accessTTL
	if typ == TokenTypeRefresh {
		ttl = ti.refreshTTL
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.issuer,
			Subject:   usr.ID.String(),
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Type:    typ,
		UUID:    usr.ID.String(),
		IsAdmin: usr.IsAdmin(),
		Roles:   usr.Roles,
	}
}

// Sign generates a signed JWT token string representing claims.
func (ti TokenIssuer) Sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ti.key)
	return ss, errors.Wrap(err, "signing token")
}

func (ti TokenIssuer) issue(usr user.User, types ...string) (TokenPair, error) {
	var pair TokenPair
	for _, typ := range types {
		ss, err := ti.Sign(ti.UserClaims(usr, typ))
		if err != nil {
			return TokenPair{}, err
		}
		if typ == TokenTypeRefresh {
			pair.Refresh = ss
		} else {
			pair.Access = ss
		}
	}
	return pair, nil
}

// parseRefresh checks the signature, the expiry and the type of a refresh token.
func (ti TokenIssuer) parseRefresh(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errTokenInvalid
		}
		return ti.key, nil
	})
	if err != nil {
		// only a well signed token can be reported as expired
		if verr, ok := err.(*jwt.ValidationError); ok && verr.Errors == jwt.ValidationErrorExpired {
			return nil, errTokenExpired
		}
		return nil, errTokenInvalid
	}
	if claims.Type != TokenTypeRefresh {
		return nil, errTokenInvalid
	}
	return claims, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser returns the active User the access token was issued to.
func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.Get(ctx.Request().Context(), claims.UUID)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by UUID")
	}
	if !usr.IsActive {
		return user.User{}, errUnauthorized
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

type authApi struct {
	tokens TokenIssuer
	svc    *user.Service
}

func registerAuthAPI(g *echo.Group, tokens TokenIssuer, svc *user.Service) {
	api := authApi{tokens: tokens, svc: svc}

	ag := g.Group("/auth")
	ag.POST("", api.login)
	ag.DELETE("", api.logout)
	ag.POST("/refresh", api.refresh)
}

func (api *authApi) login(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	if verr := ps.require("email", "password"); verr.HasErrors() {
		return verr
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), ps.get("email"), ps.get("password"))
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInactive:
			return errUserInactive
		case user.ErrInvalidCredentials:
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}

	pair, err := api.tokens.issue(usr, TokenTypeRefresh, TokenTypeAccess)
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: pair})
}

// logout would blacklist the refresh token; there is no blacklist yet.
func (api *authApi) logout(echo.Context) error {
	return errNotImplemented
}

func (api *authApi) refresh(ctx echo.Context) error {
	ps, err := bindParams(ctx)
	if err != nil {
		return err
	}
	if verr := ps.require("refresh"); verr.HasErrors() {
		return verr
	}

	claims, err := api.tokens.parseRefresh(ps.get("refresh"))
	if err != nil {
		return err
	}
	usr, err := api.svc.Get(ctx.Request().Context(), claims.UUID)
	if err != nil {
		return errors.Wrap(err, "finding user by UUID")
	}
	if !usr.IsActive {
		return errUserInactive
	}

	pair, err := api.tokens.issue(usr, TokenTypeAccess)
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: pair})
}
