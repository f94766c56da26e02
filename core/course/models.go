package course

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/crud"
)

type Course struct {
	ID        uuid.UUID   `json:"uuid"`
	Name      string      `json:"name" validate:"required,max=100,singleline"`
	Duration  int         `json:"duration" validate:"gte=0,lte=32767"`
	Desc      null.String `json:"desc"`
	Tags      []string    `json:"tags" validate:"dive,max=100,singleline"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (crs *Course) EditableFields() []crud.Field {
	return []crud.Field{
		crud.String("name", &crs.Name),
		crud.Int("duration", &crs.Duration),
		crud.NullString("desc", &crs.Desc),
		crud.StringList("tags", &crs.Tags, NormalizeTags),
	}
}

// TagCount is the number of courses carrying a tag.
type TagCount struct {
	Name     string `json:"name"`
	NumTimes int    `json:"num_times"`
}

// NormalizeTags trims, deduplicates and sorts tags. The result is never nil.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = core.CleanString(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// HasTagPrefix reports whether tag starts with prefix, ignoring case.
func HasTagPrefix(tag, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(tag), strings.ToLower(prefix))
}
