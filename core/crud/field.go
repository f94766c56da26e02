package crud

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
)

var (
	errNotInteger = errors.New("must be an integer")
	errNotBool    = errors.New("must be true or false")
	errNotUUID    = errors.New("must be a valid UUID")
)

// Field is a mutable attribute of an entity.
type Field struct {
	Name   string
	get    func() interface{}
	set    func(interface{})
	coerce func(interface{}) (interface{}, error)
}

// Attr binds the attribute p under name.
// Raw string values are converted with parse; values already of type T are assigned as is.
func Attr[T any](name string, p *T, parse func(string) (T, error)) Field {
	return Field{
		Name: name,
		get:  func() interface{} { return *p },
		set:  func(v interface{}) { *p = v.(T) },
		coerce: func(v interface{}) (interface{}, error) {
			if s, ok := v.(string); ok && parse != nil {
				return parse(s)
			}
			if t, ok := v.(T); ok {
				return t, nil
			}
			var zero T
			return nil, fmt.Errorf("expected a value of type %T", zero)
		},
	}
}

// String binds a trimmed string attribute.
func String(name string, p *string) Field {
	return Attr(name, p, func(s string) (string, error) { return core.CleanString(s), nil })
}

// LowerString binds a trimmed and lowered string attribute.
func LowerString(name string, p *string) Field {
	return Attr(name, p, func(s string) (string, error) { return core.CleanString(s, true /* lower */), nil })
}

// NullString binds a nullable string attribute; a blank value clears it.
func NullString(name string, p *null.String) Field {
	return Attr(name, p, ParseNullString)
}

// Int binds an integer attribute.
func Int(name string, p *int) Field {
	return Attr(name, p, ParseInt)
}

// Bool binds a boolean attribute.
func Bool(name string, p *bool) Field {
	return Attr(name, p, func(s string) (bool, error) {
		b, err := strconv.ParseBool(core.CleanString(s))
		if err != nil {
			return false, errNotBool
		}
		return b, nil
	})
}

// StringList binds a list attribute given as a comma separated string; normalize is applied on every value.
func StringList(name string, p *[]string, normalize func([]string) []string) Field {
	f := Attr(name, p, func(s string) ([]string, error) { return normalize(SplitList(s)), nil })
	coerce := f.coerce
	f.coerce = func(v interface{}) (interface{}, error) {
		if list, ok := v.([]string); ok {
			return normalize(list), nil
		}
		return coerce(v)
	}
	return f
}

// UUID binds a reference attribute.
func UUID(name string, p *uuid.UUID) Field {
	return Attr(name, p, func(s string) (uuid.UUID, error) {
		id, err := uuid.Parse(core.CleanString(s))
		if err != nil {
			return uuid.Nil, errNotUUID
		}
		return id, nil
	})
}

// NullUUID binds a nullable reference attribute; a blank value clears it.
func NullUUID(name string, p *uuid.NullUUID) Field {
	f := Attr(name, p, func(s string) (uuid.NullUUID, error) {
		s = core.CleanString(s)
		if s == "" {
			return uuid.NullUUID{}, nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.NullUUID{}, errNotUUID
		}
		return uuid.NullUUID{UUID: id, Valid: true}, nil
	})
	coerce := f.coerce
	f.coerce = func(v interface{}) (interface{}, error) {
		if id, ok := v.(uuid.UUID); ok {
			return uuid.NullUUID{UUID: id, Valid: true}, nil
		}
		return coerce(v)
	}
	return f
}

func ParseInt(s string) (int, error) {
	i, err := strconv.Atoi(core.CleanString(s))
	if err != nil {
		return 0, errNotInteger
	}
	return i, nil
}

func ParseNullString(s string) (null.String, error) {
	s = core.CleanString(s)
	return null.NewString(s, s != ""), nil
}
