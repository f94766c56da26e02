package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrdering(t *testing.T) {
	valid := func(f string) bool { return f != "password_hash" }

	tests := []struct {
		raw  string
		want []DBOrdering
	}{
		{raw: "", want: nil},
		{raw: " , -", want: nil},
		{raw: "last_name", want: []DBOrdering{{Field: "last_name", Ascending: true}}},
		{raw: "last_name, -created_at", want: []DBOrdering{{Field: "last_name", Ascending: true}, {Field: "created_at"}}},
		{raw: "-password_hash,email", want: []DBOrdering{{Field: "email", Ascending: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrdering(tt.raw, valid))
		})
	}

	assert.Equal(t, "email ASC", DBOrdering{Field: "email", Ascending: true}.String())
	assert.Equal(t, "created_at DESC", DBOrdering{Field: "created_at"}.String())
}
