package core

import "time"

// ModeFlag is the severity of a log message.
type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var modeNames = [...]string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL", "SILENT"}

func (m ModeFlag) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "UNKNOWN"
}

var (
	// Verbose turns on debug messages regardless of the log mode.
	Verbose bool

	mode = InfoMode
)

// Logger is the backend receiving messages that pass the log mode.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})

	// Shutdown closes any log file.
	Shutdown()
}

// SetLogMode sets the minimum severity that is logged.  SilentMode turns off
// all logging.
func SetLogMode(newMode ModeFlag) {
	mode = newMode
}

func enabled(level ModeFlag) bool {
	return level >= mode || (level == DebugMode && Verbose)
}

func Debugf(format string, args ...interface{}) {
	if enabled(DebugMode) {
		logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled(InfoMode) {
		logger.Infof(format, args...)
	}
}

func Warningf(format string, args ...interface{}) {
	if enabled(WarningMode) {
		logger.Warningf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if enabled(ErrorMode) {
		logger.Errorf(format, args...)
	}
}

func Criticalf(format string, args ...interface{}) {
	if enabled(CriticalMode) {
		logger.Criticalf(format, args...)
	}
}

// Shutdown closes any log file.
func Shutdown() {
	logger.Shutdown()
}

// TimeLog appends the time since its creation to each message, e.g.
//
//	timedLog := core.NewTimeLog()
//	...
//	timedLog.Infof("matched %d labels", n) // "matched 12 labels: 1.2s"
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{time.Now()}
}

func (t TimeLog) timed(format string, args []interface{}) (string, []interface{}) {
	return format + ": %s\n", append(args, time.Since(t.start))
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	if enabled(DebugMode) {
		f, a := t.timed(format, args)
		logger.Debugf(f, a...)
	}
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	if enabled(InfoMode) {
		f, a := t.timed(format, args)
		logger.Infof(f, a...)
	}
}

func (t TimeLog) Warningf(format string, args ...interface{}) {
	if enabled(WarningMode) {
		f, a := t.timed(format, args)
		logger.Warningf(f, a...)
	}
}

func (t TimeLog) Errorf(format string, args ...interface{}) {
	if enabled(ErrorMode) {
		f, a := t.timed(format, args)
		logger.Errorf(f, a...)
	}
}

func (t TimeLog) Criticalf(format string, args ...interface{}) {
	if enabled(CriticalMode) {
		f, a := t.timed(format, args)
		logger.Criticalf(f, a...)
	}
}
