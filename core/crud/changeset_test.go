package crud

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
)

type gadget struct {
	ID       uuid.UUID
	Name     string
	Size     int
	Note     null.String
	Tags     []string
	Owner    uuid.NullUUID
	Internal string
}

func (g *gadget) EditableFields() []Field {
	return []Field{
		String("name", &g.Name),
		Int("size", &g.Size),
		NullString("note", &g.Note),
		StringList("tags", &g.Tags, func(l []string) []string { return l }),
		NullUUID("owner", &g.Owner),
	}
}

func TestApply(t *testing.T) {
	owner := uuid.New()
	base := gadget{ID: uuid.New(), Name: "box", Size: 2, Tags: []string{"a"}, Internal: "keep"}

	tests := []struct {
		name     string
		cs       ChangeSet
		want     []string
		wantGadg func(g gadget) gadget
	}{
		{name: "empty change set", cs: nil, want: []string{}, wantGadg: func(g gadget) gadget { return g }},
		{
			name: "unchanged values are skipped",
			cs:   ChangeSet{{"name", " box "}, {"size", "2"}},
			want: []string{}, wantGadg: func(g gadget) gadget { return g },
		},
		{
			name: "unknown fields are skipped",
			cs:   ChangeSet{{"internal", "lol"}, {"id", uuid.NewString()}},
			want: []string{}, wantGadg: func(g gadget) gadget { return g },
		},
		{
			name: "modified in change set order",
			cs:   ChangeSet{{"size", "5"}, {"name", "crate"}, {"note", "fragile"}},
			want: []string{"size", "name", "note"},
			wantGadg: func(g gadget) gadget {
				g.Size, g.Name, g.Note = 5, "crate", null.StringFrom("fragile")
				return g
			},
		},
		{
			name: "typed values",
			cs:   ChangeSet{{"owner", owner}, {"tags", []string{"a", "b"}}},
			want: []string{"owner", "tags"},
			wantGadg: func(g gadget) gadget {
				g.Owner = uuid.NullUUID{UUID: owner, Valid: true}
				g.Tags = []string{"a", "b"}
				return g
			},
		},
		{
			name: "repeated field keeps first position and last value",
			cs:   ChangeSet{{"name", "x"}, {"size", "3"}, {"name", "y"}},
			want: []string{"name", "size"},
			wantGadg: func(g gadget) gadget {
				g.Name, g.Size = "y", 3
				return g
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := base
			g.Tags = append([]string(nil), base.Tags...)

			got, err := Apply(&g, tt.cs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantGadg(base), g)
		})
	}
}

func TestApply_idempotent(t *testing.T) {
	g := gadget{Name: "box", Size: 1}
	cs := ChangeSet{{"name", "crate"}, {"size", "4"}, {"note", "n"}}

	first, err := Apply(&g, cs)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "size", "note"}, first)

	second, err := Apply(&g, cs)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestApply_invalidValues(t *testing.T) {
	g := gadget{Name: "box", Size: 1}
	orig := g

	_, err := Apply(&g, ChangeSet{{"name", "crate"}, {"size", "big"}, {"owner", "lol"}})
	require.Error(t, err)

	verr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T", err)
	assert.Equal(t, map[string][]string{
		"size":  {"must be an integer"},
		"owner": {"must be a valid UUID"},
	}, verr.FieldMessages())
	assert.Equal(t, orig, g, "entity must be left untouched")
}

func TestChangeSet(t *testing.T) {
	cs := ChangeSet{{"uuid", "x"}, {"name", "a"}, {"students", "b"}, {"name", "c"}}

	v, ok := cs.String("name")
	assert.True(t, ok)
	assert.Equal(t, "c", v)
	assert.False(t, cs.Has("lol"))

	assert.Equal(t, ChangeSet{{"name", "a"}, {"name", "c"}}, cs.Without("uuid", "students"))

	id := uuid.New()
	set := cs.Set("uuid", id)
	got, _ := set.Get("uuid")
	assert.Equal(t, id, got)
	orig, _ := cs.Get("uuid")
	assert.Equal(t, "x", orig, "Set must not alter the receiver")
}
