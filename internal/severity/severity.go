// Package severity normalizes alert severity labels into ordinal levels.
package severity

import (
	"fmt"
	"strings"
)

// Level is the ordinal used for threshold comparison (higher = more severe).
type Level int

// Known levels. Anything unrecognized normalizes to LevelUnknown.
const (
	LevelUnknown  Level = 0
	LevelLow      Level = 1
	LevelMedium   Level = 2
	LevelHigh     Level = 3
	LevelCritical Level = 4
)

// String returns the canonical label for the level
func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	case LevelLow:
		return "low"
	default:
		return "unknown"
	}
}

// AtLeast reports whether l is at or above the threshold level.
func (l Level) AtLeast(threshold Level) bool {
	return l >= threshold
}

// Normalize maps a severity label to its level. Matching is case-insensitive
// and the label is not trimmed. It never fails: unrecognized or empty labels
// yield LevelUnknown.
func Normalize(label string) Level {
	switch strings.ToLower(label) {
	case "critical":
		return LevelCritical
	case "high":
		return LevelHigh
	case "moderate", "medium":
		return LevelMedium
	case "low":
		return LevelLow
	default:
		return LevelUnknown
	}
}

// Label is a validated threshold label. It keeps the text the user
// configured so messages echo it back verbatim.
type Label string

// ParseLabel validates a configured threshold. The empty label is the
// unset threshold and keeps every finding. Any other label must name a
// known level, since a typo would otherwise lower the threshold to match
// every finding.
func ParseLabel(s string) (Label, error) {
	if s == "" {
		return "", nil
	}
	if Normalize(s) == LevelUnknown {
		return "", fmt.Errorf("invalid severity %q: must be one of critical, high, moderate, medium, low", s)
	}
	return Label(s), nil
}

// Level returns the ordinal for the label
func (l Label) Level() Level {
	return Normalize(string(l))
}

// String returns the label as configured
func (l Label) String() string {
	return string(l)
}
