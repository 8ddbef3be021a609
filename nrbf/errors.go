package nrbf

import "fmt"

// DecodeError reports a stream that could not be parsed, with the byte
// offset where parsing stopped.
type DecodeError struct {
	Offset int64
	Reason string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("nrbf: decode failed at offset %d: %s: %v", e.Offset, e.Reason, e.Cause)
	}
	return fmt.Sprintf("nrbf: decode failed at offset %d: %s", e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// EncodeError reports a graph that could not be written back.
type EncodeError struct {
	Reason string
	Cause  error
}

func (e *EncodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("nrbf: encode failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("nrbf: encode failed: %s", e.Reason)
}

func (e *EncodeError) Unwrap() error {
	return e.Cause
}
