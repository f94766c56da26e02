package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Go", CleanString("  Go\n"))
	assert.Equal(t, "Awe Doe", CleanString("  Awe Doe\t"))
	assert.Equal(t, "awe@test.cd", CleanString(" AWE@test.CD ", true))
	assert.Equal(t, "AWE", CleanString("AWE", false))
}

func TestNow(t *testing.T) {
	local := time.Date(2021, 1, 10, 9, 30, 0, 123456789, time.FixedZone("WAT", 3600))
	nowFunc = func() time.Time { return local }
	defer func() { nowFunc = time.Now }()

	now := Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Equal(t, 8, now.Hour())
	assert.Equal(t, 123456000, now.Nanosecond())
}
