package mqtt

import "errors"

// ErrAnswerTimeout is returned when no answer is received before the timeout.
var ErrAnswerTimeout = errors.New("timeout waiting for offer answer")
