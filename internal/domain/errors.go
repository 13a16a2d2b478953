package domain

import "errors"

var (
	ErrEmptyTopic    = errors.New("topic is required")
	ErrInvalidOption = errors.New("invalid option")
	ErrJobNotFound   = errors.New("job not found")
	ErrMissingJobID  = errors.New("missing job id")
	ErrMissingResult = errors.New("completed job without result")
)
