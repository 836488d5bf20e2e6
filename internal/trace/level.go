package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota // no tracing
	LevelError               // failures only
	LevelCall                // session and assemble calls
	LevelDetail              // engine invocations
	LevelDebug               // buffers
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelError:  "error",
	LevelCall:   "call",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

// finest scope recorded per level; 0 means spans are not recorded
var levelScope = [...]Scope{
	LevelCall:   ScopeCall,
	LevelDetail: ScopeInvoke,
	LevelDebug:  ScopeBuffer,
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level. Empty means off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for l, name := range levelNames {
		if name == s {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether spans and points of scope are recorded.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(levelScope) && scope > 0 && scope <= levelScope[l]
}

// Allows is the filter every tracer applies before storing ev.
func (l Level) Allows(ev *Event) bool {
	if l == LevelOff {
		return false
	}
	return ev.Kind == KindHeartbeat || ev.Failed || l.ShouldEmit(ev.Scope)
}
