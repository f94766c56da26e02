package core

// Logger is any service that can log and report application events.
// args may contain errors, maps of extra data and the user.User who triggered the event.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
