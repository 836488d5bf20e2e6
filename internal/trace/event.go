package trace

import (
	"strconv"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeSession Scope = iota + 1 // batch build or Session
	ScopeCall                     // one assemble call
	ScopeInvoke                   // one engine invocation
	ScopeBuffer                   // one native region
)

var scopeNames = [...]string{
	ScopeSession: "session",
	ScopeCall:    "call",
	ScopeInvoke:  "invoke",
	ScopeBuffer:  "buffer",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Attr is one key/value pair attached to an event. Order is kept.
type Attr struct {
	Key   string
	Value string
}

// Int makes an integer attribute: region sizes, attempts, byte counts.
func Int(key string, v int) Attr { return Attr{Key: key, Value: strconv.Itoa(v)} }

// Str makes a string attribute.
func Str(key, v string) Attr { return Attr{Key: key, Value: v} }

// Event is a single trace record.
type Event struct {
	Time   time.Time
	Seq    uint64
	Kind   Kind
	Scope  Scope
	SpanID uint64
	Parent uint64
	Name   string
	Detail string
	Failed bool
	// Elapsed is set on span ends.
	Elapsed time.Duration
	Attrs   []Attr
}
