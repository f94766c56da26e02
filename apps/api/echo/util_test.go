package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/classroom/apps/api/echo"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/testutil"
)

var testCtx = context.Background()

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	ctype    string
	token    string
	wantCode int
	wantData []byte
}

func newTestApp(t *testing.T) (*Server, *testutil.Stack) {
	st := testutil.NewStack(t)
	app := NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Conf:        st.Conf,
			Logger:      st.Logger,
			Validator:   st.Validator,
			UserSvc:     st.UserSvc,
			CourseSvc:   st.CourseSvc,
			ClassSvc:    st.ClassSvc,
			ScheduleSvc: st.ScheduleSvc,
		},
	)
	return app, st
}

// form url-encodes the key/value pairs of kv, keeping their order.
func form(kv ...string) []byte {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, url.QueryEscape(kv[i])+"="+url.QueryEscape(kv[i+1]))
	}
	return []byte(strings.Join(parts, "&"))
}

func newAuthRequest(method, path, token string, data []byte, ctype ...string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, bytes.NewBuffer(data))
	if len(ctype) > 0 && ctype[0] != "" {
		req.Header.Set("Content-Type", ctype[0])
	} else {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func newRequest(method, path string, data []byte, ctype ...string) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data, ctype...)
}

func serve(app *Server, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body, tt.ctype)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, st *testutil.Stack, usr user.User, typ ...string) string {
	tokens := NewTokenIssuer(st.Conf)
	tokenType := TokenTypeAccess
	if len(typ) > 0 {
		tokenType = typ[0]
	}
	token, err := tokens.Sign(tokens.UserClaims(usr, tokenType))
	require.NoError(t, err)
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	return marshalObj(t, objs)
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func runHTTPTests(t *testing.T, app *Server, tests []httpTest) {
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, serve(app, tt))
		})
	}
}

func sortedStrings(ss ...string) []string {
	sort.Strings(ss)
	return ss
}
