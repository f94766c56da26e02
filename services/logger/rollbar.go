// Package logsvc implements core.Logger on top of the standard logger, reporting to Rollbar when enabled.
package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

const (
	levelDebug = "DEBUG"
	levelInfo  = "INFO"
	levelWarn  = "WARN"
	levelError = "ERROR"
	levelFatal = "FATAL"
)

// reporters maps a level onto its Rollbar severity.
var reporters = map[string]func(...interface{}){
	levelDebug: rollbar.Debug,
	levelInfo:  rollbar.Info,
	levelWarn:  rollbar.Warning,
	levelError: rollbar.Error,
	levelFatal: rollbar.Critical,
}

// RollbarLogger writes every entry to std; DEBUG entries only in debug mode.
// Args are errors, extra data maps or the user.User who triggered the event.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

// Enable turns the Rollbar reporting on or off; the standard logger always logs.
func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// split pulls the first user.User out of args.
func split(args []interface{}) (usr *user.User, rest []interface{}) {
	rest = make([]interface{}, 0, len(args))
	for _, arg := range args {
		if u, ok := arg.(user.User); ok {
			if usr == nil {
				usr = &u
			}
			continue
		}
		rest = append(rest, arg)
	}
	return usr, rest
}

func (l *RollbarLogger) report(level, msg string, usr *user.User, args []interface{}) {
	if usr != nil {
		rollbar.SetPerson(usr.ID.String(), usr.FullName(), usr.Email)
	} else {
		rollbar.ClearPerson()
	}
	reporters[level](append([]interface{}{msg}, args...)...)
}

func (l *RollbarLogger) print(level, msg string, usr *user.User, args []interface{}) {
	l.std.Printf("[%s] %s\n", level, msg)
	if usr != nil {
		l.std.Printf("user: %s <%s>\n", usr.ID, usr.Email)
	}
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) log(level, msg string, args []interface{}) {
	usr, rest := split(args)
	l.report(level, msg, usr, rest)
	if level != levelDebug || l.debug {
		l.print(level, msg, usr, rest)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(levelDebug, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{}) { l.log(levelInfo, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{}) { l.log(levelWarn, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

// Fatal waits for the pending Rollbar reports then exits.
func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
