package cli

import (
	"flag"
	"fmt"
	"log/slog"
)

func addLogLevelFlag(flags *flag.FlagSet) {
	if flags.Lookup("log-level") != nil {
		return
	}

	flags.Var(&logLevelFlag{level: slog.LevelInfo}, "log-level", "set the log level (DEBUG, INFO, WARN, ERROR)")
}

type logLevelFlag struct {
	level slog.Level
}

func (f *logLevelFlag) Set(s string) error {
	var level slog.Level

	err := level.UnmarshalText([]byte(s))
	if err != nil {
		return fmt.Errorf("unsupported log level %q provided. supported log levels are DEBUG, INFO, WARN, ERROR", s)
	}

	f.level = level
	slog.SetLogLoggerLevel(level)

	return nil
}

func (f *logLevelFlag) String() string {
	if f == nil {
		return slog.LevelInfo.String()
	}

	return f.level.String()
}
