package gsc

import "fmt"

// ExportError reports a failure while decoding one export. Err carries the
// category (decerr.ErrCorruption or decerr.ErrDecode).
type ExportError struct {
	Export    string
	Namespace string
	Offset    int32
	Err       error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s::%s at 0x%x: %v", e.Namespace, e.Export, e.Offset, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
