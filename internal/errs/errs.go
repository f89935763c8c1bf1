// Package errs holds the error kinds shared by the metadata codecs and the
// ffmpeg collaborators. Errors returned from those packages wrap exactly one of
// these sentinels, so callers should test for them using errors.Is.
package errs

import "errors"

var (
	ErrFormat          = errors.New("malformed input")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIO              = errors.New("i/o failure")
)
