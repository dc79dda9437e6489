package pattern

import "fmt"

// Code is the machine-readable error class of a pattern error
type Code string

const (
	CodeMaxPatterns       Code = "MAX_PATTERNS"
	CodeDuplicateID       Code = "DUPLICATE_ID"
	CodeLoadError         Code = "LOAD_ERROR"
	CodeDimensionMismatch Code = "DIMENSION_MISMATCH"
	CodeInvalidPattern    Code = "INVALID_PATTERN"
)

// Sentinels for errors.Is matching by code
var (
	ErrMaxPatterns       = &Error{Code: CodeMaxPatterns}
	ErrDuplicateID       = &Error{Code: CodeDuplicateID}
	ErrLoad              = &Error{Code: CodeLoadError}
	ErrDimensionMismatch = &Error{Code: CodeDimensionMismatch}
	ErrInvalidPattern    = &Error{Code: CodeInvalidPattern}
)

// Error is a structural failure tied to a pattern
// Pattern may be nil when no pattern exists yet (capacity checks)
type Error struct {
	Code    Code
	Message string
	Pattern *Pattern
	Err     error
}

// NewError builds a pattern error, err is the optional cause
func NewError(code Code, msg string, p *Pattern, err error) *Error {
	return &Error{Code: code, Message: msg, Pattern: p, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Pattern != nil && e.Pattern.ID != "" {
		msg = fmt.Sprintf("pattern %s: %s", e.Pattern.ID, msg)
	} else {
		msg = "pattern: " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// PatternID returns the offending pattern id or ""
func (e *Error) PatternID() string {
	if e.Pattern == nil {
		return ""
	}
	return e.Pattern.ID
}
