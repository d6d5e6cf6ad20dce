package logsvc

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/session"
)

// ConsoleLogger writes human-readable lines; used in DEV and TEST where nothing goes to Rollbar.
type ConsoleLogger struct {
	zl   zerolog.Logger
	exit func(int) // mockable
}

var _ core.Logger = (*ConsoleLogger)(nil)

// NewConsoleLogger logs to w (stderr when nil); debug messages are dropped unless debug is set.
func NewConsoleLogger(w io.Writer, debug bool) *ConsoleLogger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	return &ConsoleLogger{
		zl:   zerolog.New(out).Level(level).With().Timestamp().Logger(),
		exit: os.Exit,
	}
}

// expected fmt: msg | error, map[string]interface{}, session.Person
func (l *ConsoleLogger) write(ev *zerolog.Event, msg string, args []interface{}) {
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			ev = ev.Err(a)
		case map[string]interface{}:
			ev = ev.Fields(a)
		case session.Person:
			ev = ev.Str("user", a.Username)
		default:
			ev = ev.Interface("arg", a)
		}
	}
	ev.Msg(msg)
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.write(l.zl.Debug(), msg, args) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.write(l.zl.Info(), msg, args) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.write(l.zl.Warn(), msg, args) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.write(l.zl.Error(), msg, args) }

func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) {
	l.write(l.zl.WithLevel(zerolog.FatalLevel), msg, args)
	l.exit(1)
}

// New picks the logger for conf: Rollbar outside debug when a token is set, the console otherwise.
// name prefixes every line ("ADMIN", "API").
func New(name string, w io.Writer, conf *core.Config) core.Logger {
	if w == nil {
		w = os.Stderr
	}
	if conf.Debug || conf.TestMode || conf.RollbarToken == "" {
		cl := NewConsoleLogger(w, conf.Debug && !conf.TestMode)
		cl.zl = cl.zl.With().Str("app", name).Logger()
		return cl
	}
	rl := NewRollbarLogger(log.New(w, name+" : ", log.LstdFlags|log.Lmicroseconds), conf)
	rl.Enable(true)
	return rl
}
