package errs

import (
	"github.com/pkg/errors"
)

// Error codes carried on protocol error frames. Values below 1100 are
// recoverable per-message conditions; the connection stays open.
const (
	CodeBadFrame     = 1001 // payload is not a valid frame envelope
	CodeUnknownType  = 1002 // envelope type has no handler
	CodeUnauthorized = 1003 // operation requires an authenticated identity
	CodeScope        = 1004 // operation not available on this endpoint
)

// CodeError is a coded protocol error. It is what peers see on an
// error frame, so Msg must stay free of internal detail.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string { return e.Msg }

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Wrap attaches a stack and context to err for logging; the coded
// error stays recoverable via errors.As.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

var (
	ErrBadFrame     = NewCodeError(CodeBadFrame, "invalid JSON payload")
	ErrUnknownType  = NewCodeError(CodeUnknownType, "unknown message type")
	ErrUnauthorized = NewCodeError(CodeUnauthorized, "unauthorized operation")
	ErrNoRoom       = NewCodeError(CodeScope, "connection is not room scoped")
)

// AsCodeError extracts a *CodeError from anywhere in err's chain.
func AsCodeError(err error) (*CodeError, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
