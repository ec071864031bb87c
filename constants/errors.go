package constants

import "errors"

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrSchemaInference = errors.New("schema inference error")
	ErrNonRetryable    = errors.New("non-retryable error")
)
