package models

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"
)

// ErrorKind is the closed failure taxonomy reported in result envelopes.
type ErrorKind string

const (
	KindFetch         ErrorKind = "fetch_failure"
	KindProvider      ErrorKind = "provider_error"
	KindRateLimited   ErrorKind = "rate_limited"
	KindValidation    ErrorKind = "validation_failure"
	KindPrediction    ErrorKind = "prediction_failure"
	KindPersistence   ErrorKind = "persistence_failure"
	KindAuth          ErrorKind = "auth_failure"
	KindConfiguration ErrorKind = "configuration_failure"
)

// Error is the single error type crossing component boundaries.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int    // provider HTTP status, when known
	Body   string // provider response body, truncated
	Msg    string
	Err    error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrFetch         = &Error{Kind: KindFetch}
	ErrProvider      = &Error{Kind: KindProvider}
	ErrRateLimited   = &Error{Kind: KindRateLimited}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrPrediction    = &Error{Kind: KindPrediction}
	ErrPersistence   = &Error{Kind: KindPersistence}
	ErrAuth          = &Error{Kind: KindAuth}
	ErrConfiguration = &Error{Kind: KindConfiguration}
)

const maxBodyInError = 256

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Status == 0 && t.Msg == "" && t.Err == nil
}

func FetchFailure(op string, err error) *Error {
	return &Error{Kind: KindFetch, Op: op, Err: err}
}

// ProviderError builds the error for a non-2xx provider response. A 429 is reported as RateLimited.
func ProviderError(op string, status int, body string) *Error {
	kind := KindProvider
	if status == 429 {
		kind = KindRateLimited
	}
	if len(body) > maxBodyInError {
		cut := maxBodyInError
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return &Error{Kind: kind, Op: op, Status: status, Body: strings.TrimSpace(body)}
}

func ValidationFailure(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func PredictionFailure(op, format string, args ...any) *Error {
	return &Error{Kind: KindPrediction, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func PersistenceFailure(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

func AuthFailure(msg string) *Error {
	return &Error{Kind: KindAuth, Msg: msg}
}

func ConfigurationFailure(op string, err error) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// KindOf returns the taxonomy kind of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Class is the retry classification of a failed provider call.
type Class int

const (
	ClassFatal Class = iota
	ClassTransient
	ClassRateLimited
)

func (c Class) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// Classify maps a non-nil error to RateLimited, Transient or Fatal.
// Errors outside the taxonomy mentioning status 429 count as rate limited.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindRateLimited:
			return ClassRateLimited
		case KindFetch:
			return ClassTransient
		case KindProvider:
			if e.Status >= 500 || e.Status == 408 {
				return ClassTransient
			}
			return ClassFatal
		default:
			return ClassFatal
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ClassTransient
	}
	if strings.Contains(err.Error(), "429") {
		return ClassRateLimited
	}
	return ClassFatal
}
