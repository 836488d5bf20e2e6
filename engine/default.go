package engine

import "fmt"

// nativeEngine is set by the cgo build of this package.
var nativeEngine func() (Engine, error)

// Kind names an engine backend.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindNative Kind = "native"
	KindExec   Kind = "exec"
)

// ParseKind converts a config/flag value into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindAuto:
		return KindAuto, nil
	case KindNative, KindExec:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown engine %q (expected auto|native|exec)", s)
	}
}

// Open returns an engine of the requested kind. KindAuto prefers the linked
// library and falls back to the fasm binary. execPath is used by KindExec.
func Open(kind Kind, execPath string) (Engine, error) {
	switch kind {
	case KindNative:
		if nativeEngine == nil {
			return nil, fmt.Errorf("%w: built without the fasm tag", ErrUnavailable)
		}
		return nativeEngine()
	case KindExec:
		e := NewExec(execPath)
		if err := e.Check(); err != nil {
			return nil, err
		}
		return e, nil
	case KindAuto, "":
		if nativeEngine != nil {
			return nativeEngine()
		}
		return Open(KindExec, execPath)
	default:
		return nil, fmt.Errorf("unknown engine %q", kind)
	}
}

// Default opens the best available engine with default settings.
func Default() (Engine, error) {
	return Open(KindAuto, "")
}
