package hook

import "errors"

var (
	// ErrMalformedMessage is returned when a non-silent message reaches the
	// recorder with neither textual content nor a structured payload
	ErrMalformedMessage = errors.New("message must carry content or tool calls")
)
