package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const day = 24 * time.Hour

var (
	salt    = []byte("masomo.classroom.core.user.token_gen")
	epoch   = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	nowFunc = time.Now // mockable

	tsEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID encodes the User ID for a password reset link.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID.String()))
}

func decodeUID(uid string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.ParseBytes(raw)
}

// daysSinceEpoch rounds up, so a token issued at any time of a day expires at the same time.
func daysSinceEpoch(t time.Time) int {
	d := t.Sub(epoch)
	days := int(d / day)
	if d%day > 0 {
		days++
	}
	return days
}

// resetToken is `<base32 issue day>-<signature>`.
type resetToken struct {
	day int
	sig string
}

func (tok resetToken) String() string {
	return tsEncoding.EncodeToString([]byte(strconv.Itoa(tok.day))) + "-" + tok.sig
}

func parseResetToken(s string) (resetToken, error) {
	i := strings.IndexByte(s, '-')
	if i < 0 {
		return resetToken{}, errInvalidToken
	}
	raw, err := tsEncoding.DecodeString(s[:i])
	if err != nil {
		return resetToken{}, errInvalidToken
	}
	d, err := strconv.Atoi(string(raw))
	if err != nil {
		return resetToken{}, errInvalidToken
	}
	return resetToken{day: d, sig: s[i+1:]}, nil
}

// tokenGenerator makes and checks one-time password reset tokens.
// A token dies as soon as the user's password or last login changes.
type tokenGenerator struct {
	secretKey []byte
	timeout   time.Duration
}

// signature binds the user state and the issue day.
func (tg tokenGenerator) signature(usr User, issued int) string {
	var state bytes.Buffer
	state.WriteString(usr.ID.String())
	state.Write(usr.PasswordHash)
	if usr.LastLogin.Valid {
		state.WriteString(usr.LastLogin.Time.UTC().Format(time.RFC3339Nano))
	}
	state.WriteString(strconv.Itoa(issued))

	key := sha256.Sum256(append(append([]byte(nil), salt...), tg.secretKey...))
	mac := hmac.New(sha256.New, key[:])
	mac.Write(state.Bytes())
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (tg tokenGenerator) makeToken(usr User) string {
	issued := daysSinceEpoch(nowFunc())
	return resetToken{day: issued, sig: tg.signature(usr, issued)}.String()
}

func (tg tokenGenerator) verifyToken(usr User, token string) error {
	tok, err := parseResetToken(token)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(tok.sig), []byte(tg.signature(usr, tok.day))) {
		return errInvalidToken
	}
	if daysSinceEpoch(nowFunc())-tok.day > int(tg.timeout/day) {
		return errTokenExpired
	}
	return nil
}
