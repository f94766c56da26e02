package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/classroom/apps/api/echo"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/testutil"
)

func Test_authApi_login(t *testing.T) {
	app, st := newTestApp(t)

	usr := testutil.CreateUser(t, st.UserRepo, "Awe", "awe@test.cd", "0810000001", testutil.Password, []string{user.RoleStudent}, true)
	testutil.CreateUser(t, st.UserRepo, "N Dog", "ndog@test.cd", "0810000002", testutil.Password, nil, false) // 😂

	tests := []httpTest{
		{
			name: "fields required", wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": ["this field is required"], "password": ["this field is required"]}`),
		},
		{
			name: "unknown email", body: form("email", "nope@test.cd", "password", testutil.Password),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "inactive user", body: form("email", "ndog@test.cd", "password", testutil.Password),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "user inactive"}),
		},
		{
			name: "wrong password", body: form("email", "awe@test.cd", "password", "Wr0ng-Password"),
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: "no matching credentials"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/v1/auth"
	}
	runHTTPTests(t, app, tests)

	for _, tt := range []httpTest{
		{name: "form", body: form("email", " AWE@test.cd ", "password", testutil.Password)},
		{name: "json", body: []byte(`{"email": "awe@test.cd", "password": "` + testutil.Password + `"}`), ctype: "application/json"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/api/v1/auth"
			rec := serve(app, tt)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var res TokenResponse
			unmarshal(t, rec, &res)
			assert.NotEmpty(t, res.Token.Refresh)
			assert.NotEmpty(t, res.Token.Access)

			claims := new(Claims)
			_, err := jwt.ParseWithClaims(res.Token.Access, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(st.Conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, TokenTypeAccess, claims.Type)
			assert.Equal(t, usr.ID.String(), claims.UUID)
		})
	}

	got, err := st.UserRepo.FindByUUID(testCtx, usr.ID)
	require.NoError(t, err)
	assert.True(t, got.LastLogin.Valid, "last_login must be set")
}

func Test_authApi_logout(t *testing.T) {
	app, _ := newTestApp(t)
	runHTTPTests(t, app, []httpTest{{
		name: "not implemented", method: http.MethodDelete, path: "/api/v1/auth",
		wantCode: http.StatusNotImplemented, wantData: marshalObj(t, httpErr{Error: "not implemented"}),
	}})
}

func Test_authApi_refresh(t *testing.T) {
	app, st := newTestApp(t)

	usr := testutil.CreateUser(t, st.UserRepo, "Awe", "awe@test.cd", "0810000001", testutil.Password, nil, true)
	naughty := testutil.CreateUser(t, st.UserRepo, "N Dog", "ndog@test.cd", "0810000002", testutil.Password, nil, false)
	ghost := user.User{ID: uuid.New(), IsActive: true}

	tokens := NewTokenIssuer(st.Conf)
	expiredClaims := tokens.UserClaims(usr, TokenTypeRefresh)
	expiredClaims.IssuedAt = time.Now().Add(-48 * time.Hour).Unix()
	expiredClaims.ExpiresAt = time.Now().Add(-24 * time.Hour).Unix()
	expired, err := tokens.Sign(expiredClaims)
	require.NoError(t, err)

	otherConf := *st.Conf
	otherConf.SecretKey = "another-secret"
	otherTokens := NewTokenIssuer(&otherConf)
	forged, err := otherTokens.Sign(otherTokens.UserClaims(usr, TokenTypeRefresh))
	require.NoError(t, err)

	invalid := marshalObj(t, httpErr{Error: "invalid refresh token"})
	tests := []httpTest{
		{
			name: "refresh required", wantCode: http.StatusBadRequest,
			wantData: []byte(`{"refresh": ["this field is required"]}`),
		},
		{name: "garbage", body: form("refresh", "lol"), wantCode: http.StatusBadRequest, wantData: invalid},
		{name: "bad signature", body: form("refresh", forged), wantCode: http.StatusBadRequest, wantData: invalid},
		{name: "access token", body: form("refresh", getToken(t, st, usr)), wantCode: http.StatusBadRequest, wantData: invalid},
		{
			name: "expired", body: form("refresh", expired),
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: "refresh token expired"}),
		},
		{
			name: "user gone", body: form("refresh", getToken(t, st, ghost, TokenTypeRefresh)),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "user inactive", body: form("refresh", getToken(t, st, naughty, TokenTypeRefresh)),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "user inactive"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/v1/auth/refresh"
	}
	runHTTPTests(t, app, tests)

	t.Run("refreshed", func(t *testing.T) {
		rec := serve(app, httpTest{
			method: http.MethodPost, path: "/api/v1/auth/refresh",
			body: form("refresh", getToken(t, st, usr, TokenTypeRefresh)),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res map[string]map[string]string
		unmarshal(t, rec, &res)
		assert.NotEmpty(t, res["token"]["access"])
		assert.NotContains(t, res["token"], "refresh")
	})
}
