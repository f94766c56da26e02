package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classroom/core"
)

var (
	timeOrderTag  = "timeorder"
	timeOrderText = "end time must be greater than start time"
)

// InitValidators registers the schedule validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(scheduleStructValidation, Schedule{})
	core.RegisterCustomTranslation(validate, translator, timeOrderTag, timeOrderText)
}

// scheduleStructValidation checks that a Schedule ends after it starts.
func scheduleStructValidation(sl validator.StructLevel) {
	sch := sl.Current().Interface().(Schedule)
	if sch.TimeEnd <= sch.TimeStart {
		sl.ReportError(sch.TimeEnd, FieldTimeEnd, "TimeEnd", timeOrderTag, "")
	}
}
