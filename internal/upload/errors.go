package upload

import "errors"

// Sentinel errors for upload operations.
var (
	ErrNotAnImage        = errors.New("file is not an image")
	ErrTooLarge          = errors.New("file exceeds the upload size limit")
	ErrInvalidTransition = errors.New("operation not allowed in current upload state")
	ErrSuperseded        = errors.New("selection superseded before validation finished")
)
