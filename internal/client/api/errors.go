package api

import (
	"encoding/json"
	"fmt"

	"github.com/avolkov/lanferry/internal/common"
)

// Error is a typed request failure. Kind is one of the sentinels in the
// common package so callers can classify with errors.Is; Status carries the
// HTTP status for server errors.
type Error struct {
	Kind   error
	Status int
	msg    string
	cause  error
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func wrapError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, msg: msg, cause: cause}
}

// validationEntry mirrors the first element of a structured validation
// detail payload.
type validationEntry struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// extractErrorDetail pulls a human-readable message out of an error
// response body. Precedence: "detail" as a string, "detail" as a validation
// list rendered "field: message", then "error", then a generic fallback
// with the status code.
func extractErrorDetail(body []byte, status int) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var s string
			if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
				return s
			}
			var entries []validationEntry
			if err := json.Unmarshal(payload.Detail, &entries); err == nil && len(entries) > 0 {
				e := entries[0]
				field := ""
				if len(e.Loc) > 0 {
					field = fmt.Sprintf("%v", e.Loc[len(e.Loc)-1])
				}
				if field != "" && e.Msg != "" {
					return fmt.Sprintf("%s: %s", field, e.Msg)
				}
				if e.Msg != "" {
					return e.Msg
				}
			}
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("Request failed (%d)", status)
}

// serverError builds the typed error for a non-2xx coordinator response.
func serverError(status int, body []byte) *Error {
	return &Error{Kind: common.ErrorInternal, Status: status, msg: extractErrorDetail(body, status)}
}
