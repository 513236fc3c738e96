package app

import (
	"flag"
	"fmt"
	"log/slog"
	"strings"
)

var (
	logLevelMap = map[string]slog.Level{
		"info":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
	}
	logLevelFlag string
)

func init() {
	flag.StringVar(&logLevelFlag, "log", "INFO", "Log level. Can be info, debug or warning")
}

// SetLogLevel sets the default logger level from the log flag
func SetLogLevel() error {
	level, err := parseLogLevel(logLevelFlag)
	if err != nil {
		return err
	}
	slog.SetLogLoggerLevel(level)
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	level, ok := logLevelMap[strings.ToLower(s)]
	if !ok {
		return level, fmt.Errorf("unknown log level: %v", s)
	}
	return level, nil
}
