package core

import (
	"fmt"
	"log"

	"github.com/natefinch/lumberjack"
)

type stdLogger struct {
	*lumberjack.Logger
}

var logger stdLogger

// LogConfig sets an optional rotating log file.  If Logfile is empty, log
// messages go to stderr through the standard log package.
type LogConfig struct {
	Logfile string
	MaxSize int `toml:"max_log_size"`
	MaxAge  int `toml:"max_log_age"`
}

// SetLogger creates a logger that saves to a rotating log file.
func (c *LogConfig) SetLogger() {
	if c == nil || c.Logfile == "" {
		Debugf("Sending log messages to stderr since no log file specified.\n")
		return
	}
	fmt.Printf("Sending log messages to: %s\n", c.Logfile)
	l := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	}
	log.SetOutput(l)
	logger = stdLogger{l}
}

func (slog stdLogger) printf(level ModeFlag, format string, args []interface{}) {
	log.Printf(" "+level.String()+" "+format, args...)
}

func (slog stdLogger) Debugf(format string, args ...interface{}) {
	slog.printf(DebugMode, format, args)
}

func (slog stdLogger) Infof(format string, args ...interface{}) {
	slog.printf(InfoMode, format, args)
}

func (slog stdLogger) Warningf(format string, args ...interface{}) {
	slog.printf(WarningMode, format, args)
}

func (slog stdLogger) Errorf(format string, args ...interface{}) {
	slog.printf(ErrorMode, format, args)
}

func (slog stdLogger) Criticalf(format string, args ...interface{}) {
	slog.printf(CriticalMode, format, args)
}

func (slog stdLogger) Shutdown() {
	if slog.Logger != nil {
		log.Printf("Closing log file %s\n", slog.Filename)
		slog.Close()
	}
}
