package domain

import (
	"encoding/json"
	"fmt"
)

// ErrorCode is the machine-readable classification of a router failure.
type ErrorCode string

const (
	CodeNoRoute               ErrorCode = "NO_ROUTE"
	CodeUnsupportedPair       ErrorCode = "UNSUPPORTED_PAIR"
	CodeTimeout               ErrorCode = "TIMEOUT"
	CodeInsufficientLiquidity ErrorCode = "INSUFFICIENT_LIQUIDITY"
	CodeUnknown               ErrorCode = "UNKNOWN_ERROR"
)

// RouterError is a normalized failure from a single router.
type RouterError struct {
	Router  RouterID  `json:"router"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Router, e.Message, e.Code)
}

func (e *RouterError) Unwrap() error {
	return e.Err
}

// MarshalJSON includes the raw error text for diagnostics.
func (e RouterError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Router  RouterID  `json:"router"`
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
		Raw     string    `json:"raw,omitempty"`
	}
	a := alias{Router: e.Router, Code: e.Code, Message: e.Message}
	if e.Err != nil {
		a.Raw = e.Err.Error()
	}
	return json.Marshal(a)
}

// NewRouterError builds a RouterError.
func NewRouterError(router RouterID, code ErrorCode, msg string, err error) *RouterError {
	return &RouterError{Router: router, Code: code, Message: msg, Err: err}
}
