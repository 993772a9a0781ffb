package store

import "fmt"

// DepthError reports a depth layer index outside a variable's vertical
// extent.
type DepthError struct {
	Depth  int
	Extent int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("depth %d outside vertical extent %d", e.Depth, e.Extent)
}

// ReadError reports a data file that is missing, unreadable, or lacking an
// expected variable.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
