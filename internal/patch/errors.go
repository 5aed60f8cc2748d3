package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrAnchorNotFound is returned when the anchor field does not occur in
	// the text.
	ErrAnchorNotFound = errors.New("anchor field not found")
	// ErrAnchorMalformed is returned when the anchor field is present but its
	// value is not a single-quoted string.
	ErrAnchorMalformed = errors.New("anchor value is not a single-quoted string")
)

// MissingAnchorError reports a target file without the anchor field. The
// file is left untouched and the batch moves on.
type MissingAnchorError struct {
	Locale string
	Path   string
	Anchor string
}

func (e *MissingAnchorError) Error() string {
	return fmt.Sprintf("%s: %s not found in %s", e.Locale, e.Anchor, e.Path)
}

func (e *MissingAnchorError) Unwrap() error { return ErrAnchorNotFound }

// MalformedAnchorError reports an anchor field whose value cannot be
// delimited.
type MalformedAnchorError struct {
	Locale string
	Path   string
	Anchor string
	Line   int
}

func (e *MalformedAnchorError) Error() string {
	return fmt.Sprintf("%s: %s at %s:%d has no single-quoted value", e.Locale, e.Anchor, e.Path, e.Line)
}

func (e *MalformedAnchorError) Unwrap() error { return ErrAnchorMalformed }

// FileAccessError reports a target file that could not be read, decoded or
// written.
type FileAccessError struct {
	Locale string
	Path   string
	Op     string
	Err    error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Locale, e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// IsSkip reports whether err is an anchor problem, the kind of failure
// where the file is left as it was.
func IsSkip(err error) bool {
	return errors.Is(err, ErrAnchorNotFound) || errors.Is(err, ErrAnchorMalformed)
}
