package resource

import (
	"errors"
	"fmt"
)

// Expected, user-facing conditions. The remedy for a missing file is asking
// the uploader to re-upload; neither is retriable by the system.
var (
	ErrRecordNotFound   = errors.New("resource not found")
	ErrFileNotAvailable = errors.New("file not available, please ask the uploader to re-upload")
	ErrForbidden        = errors.New("not allowed to modify this resource")
)

// Operational failures. FileCorrupted means a record holds a blob ref the
// blob store cannot resolve; it is logged at a higher severity than a plain
// missing file even though the external message is similar.
var (
	ErrFileCorrupted = errors.New("stored file could not be read")
	ErrStorageWrite  = errors.New("failed to store uploaded file")
)

// ValidationError covers malformed or policy-violating input
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is user-correctable input failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
