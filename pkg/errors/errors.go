package errors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrEmptyID                = errors.New("empty id")
	ErrMalformedEntity        = errors.New("malformed entity")
	ErrEntityExists           = errors.New("entity already exists")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrLimitSize              = errors.New("limit exceeds maximum")
)
