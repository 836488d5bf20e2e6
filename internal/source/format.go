package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrFormat is wrapped by Format errors.
var ErrFormat = errors.New("source: bad format string")

// Format substitutes positional placeholders {0}, {1}, ... with args.
// "{{" and "}}" produce literal braces. Without args the format is
// returned untouched, braces included.
func Format(format string, args ...any) (string, error) {
	if len(args) == 0 {
		return format, nil
	}
	var sb strings.Builder
	sb.Grow(len(format))
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '{' && i+1 < len(format) && format[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(format) && format[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed '{' at %d in %q", ErrFormat, i, format)
			}
			index, err := strconv.Atoi(format[i+1 : i+end])
			if err != nil || index < 0 {
				return "", fmt.Errorf("%w: bad placeholder %q", ErrFormat, format[i:i+end+1])
			}
			if index >= len(args) {
				return "", fmt.Errorf("%w: placeholder {%d} with %d argument(s)", ErrFormat, index, len(args))
			}
			sb.WriteString(fmt.Sprint(args[index]))
			i += end
		case c == '}':
			return "", fmt.Errorf("%w: unmatched '}' at %d in %q", ErrFormat, i, format)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}
