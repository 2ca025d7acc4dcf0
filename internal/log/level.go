package log

import (
	"log/slog"
	"strings"
)

// Level is the minimum severity a Logger emits
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levels = []struct {
	name    string
	aliases []string
	slog    slog.Level
}{
	LevelDebug: {name: "DEBUG", slog: slog.LevelDebug},
	LevelInfo:  {name: "INFO", slog: slog.LevelInfo},
	LevelWarn:  {name: "WARN", aliases: []string{"warning"}, slog: slog.LevelWarn},
	LevelError: {name: "ERROR", slog: slog.LevelError},
}

func (l Level) valid() bool {
	return l >= LevelDebug && int(l) < len(levels)
}

func (l Level) String() string {
	if !l.valid() {
		return "UNKNOWN"
	}
	return levels[l].name
}

// ToSlogLevel maps l onto slog. Out-of-range levels log at INFO.
func (l Level) ToSlogLevel() slog.Level {
	if !l.valid() {
		return slog.LevelInfo
	}
	return levels[l].slog
}

// ParseLevel reads a log-level input case-insensitively. Anything it does
// not recognize, including "", is INFO.
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)
	for i, lv := range levels {
		if strings.EqualFold(s, lv.name) {
			return Level(i)
		}
		for _, alias := range lv.aliases {
			if strings.EqualFold(s, alias) {
				return Level(i)
			}
		}
	}
	return LevelInfo
}
