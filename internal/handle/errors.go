package handle

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned by stream operations on a handle with no open file.
	ErrNotOpen = errors.New("no file is open")
	// ErrNotBound is returned by path operations on a handle that has no file bound.
	ErrNotBound = errors.New("no file is bound")
	// ErrInvalidMode is wrapped by OpenError when the Mode combination is unusable.
	ErrInvalidMode = errors.New("invalid open mode")
	// ErrDestinationExists is returned by Rename when the target exists and overwriting is off.
	ErrDestinationExists = errors.New("destination already exists")
	// ErrInvalidArgument is returned for negative counts, offsets and sizes.
	ErrInvalidArgument = errors.New("invalid argument")
)

// OpenError reports that a path could not be opened in the requested mode,
// or, with a zero Mode, that Bind could not find it.
// The handle is left unopened; nothing else on it is meaningful until the next
// successful Open.
type OpenError struct {
	Path string
	Mode Mode
	Err  error
}

func (e *OpenError) Error() string {
	if e.Mode == 0 {
		return fmt.Sprintf("failed to bind '%s': %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to open '%s' (mode %s): %v", e.Path, e.Mode, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}
