package crud

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core"
)

// Key identifies a record either by UUID or by its natural key. UUID wins when both are set.
type Key struct {
	UUID string
	Name string
}

func (k Key) IsZero() bool { return k.UUID == "" && k.Name == "" }

// UUIDFinder finds records of type T by UUID.
type UUIDFinder[T any] interface {
	FindByUUID(ctx context.Context, id uuid.UUID) (T, error)
}

// NameFinder finds records of type T by natural key.
type NameFinder[T any] interface {
	FindByName(ctx context.Context, name string) (T, error)
}

// ParseUUID parses s as a UUID or fails with a *core.InvalidIdentifierError.
func ParseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(core.CleanString(s))
	if err != nil {
		return uuid.Nil, &core.InvalidIdentifierError{Value: s}
	}
	return id, nil
}

// Locate resolves key with finder.
// notFound is returned when key is empty or when finder cannot look records up by natural key.
func Locate[T any](ctx context.Context, finder UUIDFinder[T], key Key, notFound error) (T, error) {
	var zero T
	if key.IsZero() {
		return zero, notFound
	}
	if key.UUID != "" {
		id, err := ParseUUID(key.UUID)
		if err != nil {
			return zero, err
		}
		return finder.FindByUUID(ctx, id)
	}
	if nf, ok := finder.(NameFinder[T]); ok {
		return nf.FindByName(ctx, core.CleanString(key.Name))
	}
	return zero, notFound
}
