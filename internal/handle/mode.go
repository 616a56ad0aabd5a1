package handle

import (
	"fmt"
	"os"
	"strings"
)

// Mode selects how Open binds a file. Flags may be OR-composed.
type Mode uint8

const (
	// ModeRead opens for reading.
	ModeRead Mode = 1 << iota
	// ModeWrite opens for writing. On its own it creates and truncates.
	ModeWrite
	// ModeAppend makes every write land at the end of the file.
	ModeAppend
	// ModeTruncate discards existing content on open. Requires ModeWrite.
	ModeTruncate
	// ModeBinary is accepted for compatibility; there is no newline translation to disable.
	ModeBinary
	// ModeAtEnd positions the cursor at the end of the file right after opening.
	ModeAtEnd
)

// flags maps a Mode to os.OpenFile flags following the classic stream-open table.
func (m Mode) flags() (int, error) {
	switch m &^ (ModeBinary | ModeAtEnd) {
	case ModeRead:
		return os.O_RDONLY, nil
	case ModeWrite, ModeWrite | ModeTruncate:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case ModeAppend, ModeWrite | ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case ModeRead | ModeWrite:
		return os.O_RDWR, nil
	case ModeRead | ModeWrite | ModeTruncate:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case ModeRead | ModeAppend, ModeRead | ModeWrite | ModeAppend:
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
	}
	return 0, ErrInvalidMode
}

// String renders m in the fopen short form ("r", "w+", "ab", "r+b").
// ModeAtEnd has no short form and is omitted.
func (m Mode) String() string {
	var s string
	switch m &^ (ModeBinary | ModeAtEnd) {
	case ModeRead:
		s = "r"
	case ModeWrite, ModeWrite | ModeTruncate:
		s = "w"
	case ModeAppend, ModeWrite | ModeAppend:
		s = "a"
	case ModeRead | ModeWrite:
		s = "r+"
	case ModeRead | ModeWrite | ModeTruncate:
		s = "w+"
	case ModeRead | ModeAppend, ModeRead | ModeWrite | ModeAppend:
		s = "a+"
	default:
		return fmt.Sprintf("Mode(%#x)", uint8(m))
	}
	if m&ModeBinary != 0 {
		s += "b"
	}
	return s
}

// ParseMode parses an fopen-style mode string: one of r, w, a followed by an
// optional '+' and an optional 'b' in either order.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty mode string", ErrInvalidMode)
	}

	var m Mode
	switch s[0] {
	case 'r':
		m = ModeRead
	case 'w':
		m = ModeWrite | ModeTruncate
	case 'a':
		m = ModeAppend
	default:
		return 0, fmt.Errorf("%w: '%s' must start with r, w or a", ErrInvalidMode, s)
	}

	rest := s[1:]
	if len(rest) > 2 || strings.Count(rest, "+") > 1 || strings.Count(rest, "b") > 1 {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidMode, s)
	}
	for _, c := range rest {
		switch c {
		case '+':
			if m&ModeAppend != 0 {
				m |= ModeRead
			} else {
				m |= ModeRead | ModeWrite
			}
		case 'b':
			m |= ModeBinary
		default:
			return 0, fmt.Errorf("%w: unexpected '%c' in '%s'", ErrInvalidMode, c, s)
		}
	}
	return m, nil
}
