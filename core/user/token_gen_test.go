package user

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestResetToken(t *testing.T) {
	tg := tokenGenerator{secretKey: []byte("secret"), timeout: 3 * day}

	now := time.Now()
	usr := User{ID: uuid.New(), Email: "t@test.cd", IsActive: true, LastLogin: null.TimeFrom(now)}
	require.NoError(t, usr.SetPassword("pwd"))

	valid := tg.makeToken(usr)

	// issued a day past the timeout
	nowFunc = func() time.Time { return time.Now().Add(-(tg.timeout + day)) }
	expired := tg.makeToken(usr)
	nowFunc = time.Now

	newPwd := usr
	require.NoError(t, newPwd.SetPassword("new-pwd"))
	newLogin := usr
	newLogin.LastLogin = null.TimeFrom(now.Add(time.Minute))
	otherKey := tokenGenerator{secretKey: []byte("other"), timeout: tg.timeout}

	tests := []struct {
		name    string
		tg      tokenGenerator
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", tg: tg, usr: usr, wantErr: errInvalidToken},
		{name: "no separator", tg: tg, usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", tg: tg, usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "non numeric day", tg: tg, usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "forged signature", tg: tg, usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired", tg: tg, usr: usr, token: expired, wantErr: errTokenExpired},
		{name: "password changed", tg: tg, usr: newPwd, token: valid, wantErr: errInvalidToken},
		{name: "logged in since", tg: tg, usr: newLogin, token: valid, wantErr: errInvalidToken},
		{name: "other secret key", tg: otherKey, usr: usr, token: valid, wantErr: errInvalidToken},
		{name: "valid", tg: tg, usr: usr, token: valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.tg.verifyToken(tt.usr, tt.token))
		})
	}
}

func TestDaysSinceEpoch(t *testing.T) {
	assert.Equal(t, 0, daysSinceEpoch(epoch))
	assert.Equal(t, 1, daysSinceEpoch(epoch.Add(time.Second)))
	assert.Equal(t, 1, daysSinceEpoch(epoch.Add(day)))
	assert.Equal(t, 2, daysSinceEpoch(epoch.Add(day+time.Hour)))
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: uuid.New()}
	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)

	_, err = decodeUID("!!")
	assert.Error(t, err)
}
