// Package apierr maps backend failures to a uniform, user-presentable error.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind separates failures that produced no HTTP response from those that did.
type Kind int

const (
	KindHTTP Kind = iota
	KindNetwork
)

// User-facing messages.
const (
	MsgBadRequest     = "Invalid request. Please check your input."
	MsgUnauthorized   = "Please login to continue."
	MsgForbidden      = "You don't have permission to perform this action."
	MsgNotFound       = "The requested resource was not found."
	MsgValidation     = "Validation error. Please check your input."
	MsgRateLimited    = "Too many requests. Please try again later."
	MsgServer         = "Server error. Please try again later."
	MsgUnexpected     = "An unexpected error occurred."
	MsgNetwork        = "Network error. Please check your connection."
	MsgSessionExpired = "Your session has expired. Please login again."
)

// Error is a normalized API failure.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Detail is the backend's own string detail, when it sent one.
	Detail string
	Raw    []byte
	cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Kind == KindNetwork {
		if e.cause != nil {
			return fmt.Sprintf("api: %s (%v)", e.Message, e.cause)
		}
		return "api: " + e.Message
	}
	if e.Detail != "" && e.Detail != e.Message {
		return fmt.Sprintf("api: %d: %s (%s)", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// Unwrap returns the transport error behind a network failure.
func (e *Error) Unwrap() error {
	return e.cause
}

// Silent reports whether the error must not be shown to the user. A 401 is
// handled by the refresh flow and status 0 is a pre-flight anomaly.
func (e *Error) Silent() bool {
	return e.Kind == KindHTTP && (e.Status == 0 || e.Status == http.StatusUnauthorized)
}

// IsNetwork reports whether err is a normalized network failure.
func IsNetwork(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNetwork
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Network wraps a transport failure (no response, timeout).
func Network(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: MsgNetwork, cause: cause}
}

// FromResponse normalizes an HTTP status and body.
func FromResponse(status int, body []byte) *Error {
	e := &Error{Kind: KindHTTP, Status: status, Raw: body}

	detail := parseDetail(body)
	e.Detail = detail.text

	switch status {
	case http.StatusBadRequest:
		e.Message = MsgBadRequest
	case http.StatusUnauthorized:
		e.Message = MsgUnauthorized
	case http.StatusForbidden:
		e.Message = MsgForbidden
	case http.StatusNotFound:
		e.Message = MsgNotFound
	case http.StatusUnprocessableEntity:
		if len(detail.msgs) > 0 {
			e.Message = strings.Join(detail.msgs, ", ")
		} else {
			e.Message = MsgValidation
		}
	case http.StatusTooManyRequests:
		e.Message = MsgRateLimited
	case http.StatusInternalServerError:
		e.Message = MsgServer
	default:
		e.Message = MsgUnexpected
	}
	return e
}

type detailInfo struct {
	text string
	msgs []string
}

// parseDetail reads FastAPI's "detail" field, which is either a string or a
// list of {msg, loc, type} objects.
func parseDetail(body []byte) detailInfo {
	var info detailInfo
	if len(body) == 0 {
		return info
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return info
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		info.text = s
		return info
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		for _, it := range items {
			if it.Msg != "" {
				info.msgs = append(info.msgs, it.Msg)
			}
		}
	}
	return info
}
