package user

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"strings"
	"sync"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/classroom/core"
	appfs "github.com/trezcool/classroom/fs"
)

const (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	pwdMinLen           = 8
	pwdMaxSimilarity    = .7
	commonPasswordsPath = "assets/common-passwords.txt.gz"
)

// pwdRule is one check of the password policy; the first failing rule is reported.
type pwdRule struct {
	tag   string
	text  string
	valid func(pwd string, attrs []string) bool
}

var (
	pwdPolicy = []pwdRule{
		{tag: "pwdminlen", text: fmt.Sprintf("password must contain at least %d characters", pwdMinLen), valid: pwdLongEnough},
		{tag: "pwdnospace", text: "password must not contain whitespace", valid: pwdNoSpace},
		{tag: "pwdnotallnum", text: "password cannot be entirely numeric", valid: pwdNotAllNumeric},
		{tag: "pwdcplx", text: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character", valid: pwdComplex},
		{tag: "pwdtoosim", text: "password cannot be similar to user attributes", valid: pwdNotSimilar},
		{tag: "pwdnocommon", text: "password is too common", valid: pwdNotCommon},
	}

	commonPasswords     map[string]struct{}
	commonPasswordsOnce sync.Once
)

// InitValidators registers the user validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(validate, translator, allRolesTag, allRolesText)

	validate.RegisterStructValidation(passwordStructValidation, NewUser{}, PasswordChange{})
	for _, rule := range pwdPolicy {
		core.RegisterCustomTranslation(validate, translator, rule.tag, rule.text)
	}
}

// allRolesValidation checks that every role is one of AllRoles.
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if !isKnownRole(role) {
			return false
		}
	}
	return true
}

func isKnownRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// passwordStructValidation applies the password policy to NewUser and PasswordChange.
func passwordStructValidation(sl validator.StructLevel) {
	var pwd string
	var attrs []string
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		pwd, attrs = usr.Password, []string{usr.FirstName, usr.LastName, usr.Email}
	case PasswordChange:
		pwd, attrs = usr.Password, []string{usr.FirstName, usr.LastName, usr.Email}
	}
	if pwd == "" {
		return // reported by `required`
	}
	for _, rule := range pwdPolicy {
		if !rule.valid(pwd, attrs) {
			sl.ReportError(pwd, "password", "Password", rule.tag, "")
			return
		}
	}
}

func pwdLongEnough(pwd string, _ []string) bool {
	return len([]rune(pwd)) >= pwdMinLen
}

func pwdNoSpace(pwd string, _ []string) bool {
	return strings.IndexFunc(pwd, unicode.IsSpace) < 0
}

func pwdNotAllNumeric(pwd string, _ []string) bool {
	return strings.IndexFunc(pwd, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0
}

func pwdComplex(pwd string, _ []string) bool {
	var upper, lower, digit, special bool
	for _, r := range pwd {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
		digit = digit || unicode.IsDigit(r)
		special = special || !isASCIIAlnum(r)
	}
	return upper && lower && digit && special
}

func isASCIIAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// pwdNotSimilar compares the characters of the password and of each attribute, ignoring case.
func pwdNotSimilar(pwd string, attrs []string) bool {
	chars := strings.Split(strings.ToLower(pwd), "")
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		matcher := difflib.NewMatcher(chars, strings.Split(strings.ToLower(attr), ""))
		if matcher.QuickRatio() >= pwdMaxSimilarity {
			return false
		}
	}
	return true
}

func pwdNotCommon(pwd string, _ []string) bool {
	commonPasswordsOnce.Do(loadCommonPasswords)
	_, common := commonPasswords[strings.ToLower(pwd)]
	return !common
}

// loadCommonPasswords reads the embedded gzipped list, one lowercase password per line.
// A missing or corrupt list disables the check.
func loadCommonPasswords() {
	commonPasswords = make(map[string]struct{})

	file, err := appfs.FS.Open(commonPasswordsPath)
	if err != nil {
		return
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			commonPasswords[pwd] = struct{}{}
		}
	}
}
