package base

import (
	"github.com/HiveCTF/cyberhive"
)

var (
	ErrNoUpdates       = cyberhive.ErrNoUpdates
	ErrMissingRequired = cyberhive.ErrMissingRequired

	ErrNotFound     = cyberhive.ErrNotFound
	ErrUnknownError = cyberhive.ErrUnknownError
)

type StatusError = cyberhive.StatusError

// Reimplement Statusf and WrapError functions here for faster reference

func Statusf(status int, format string, args ...any) *StatusError {
	return cyberhive.Statusf(status, format, args...)
}

func WrapError(err error, text string) *StatusError {
	return cyberhive.WrapError(err, text)
}
