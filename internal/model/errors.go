package model

import "errors"

// Error kinds. Callers match them with errors.Is; the wrapped message carries
// the offending id, path or value.
var (
	ErrIDNotFound                = errors.New("id not found")
	ErrDuplicateID               = errors.New("duplicate id")
	ErrInvalidArgument           = errors.New("invalid argument")
	ErrMissingGroupHeader        = errors.New("missing group header")
	ErrMissingPaymentInformation = errors.New("missing payment information")
	ErrUnsupportedVersion        = errors.New("unsupported version")
)
