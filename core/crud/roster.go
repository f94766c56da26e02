package crud

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/classroom/core"
)

// Mode tells Reconcile what to do with identifiers that could not be resolved.
type Mode int

const (
	// Lenient ignores unresolved identifiers.
	Lenient Mode = iota
	// Strict fails with a *core.PartialMatchError when any identifier is unresolved.
	Strict
)

// Collection reports which of the given identifiers it contains.
type Collection interface {
	Existing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

// CollectionFunc adapts a function to a Collection.
type CollectionFunc func(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)

func (f CollectionFunc) Existing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return f(ctx, ids)
}

// Resolution is the outcome of a reconciliation; both lists follow the input order.
type Resolution struct {
	Found   []uuid.UUID
	Missing []string
}

// SplitList splits a comma separated list, trims every item and drops blank ones.
func SplitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = core.CleanString(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ParseIdentifiers splits a comma separated list of UUIDs, dropping duplicates (first occurrence wins).
func ParseIdentifiers(raw string) ([]uuid.UUID, error) {
	items := SplitList(raw)
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		id, err := ParseUUID(item)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// Reconcile resolves the comma separated identifiers of raw against c.
func Reconcile(ctx context.Context, c Collection, raw string, mode Mode) (Resolution, error) {
	ids, err := ParseIdentifiers(raw)
	if err != nil {
		return Resolution{}, err
	}
	return ReconcileIDs(ctx, c, ids, mode)
}

// ReconcileIDs is Reconcile for already parsed identifiers.
func ReconcileIDs(ctx context.Context, c Collection, ids []uuid.UUID, mode Mode) (Resolution, error) {
	var res Resolution
	if len(ids) == 0 {
		return res, nil
	}

	existing, err := c.Existing(ctx, ids)
	if err != nil {
		return Resolution{}, err
	}
	known := make(map[uuid.UUID]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}
	for _, id := range ids {
		if known[id] {
			res.Found = append(res.Found, id)
		} else {
			res.Missing = append(res.Missing, id.String())
		}
	}

	if mode == Strict && len(res.Missing) > 0 {
		return Resolution{}, core.NewPartialMatchError(res.Missing)
	}
	return res, nil
}
