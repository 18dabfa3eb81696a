package types

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	InvalidAmount ErrorKind = iota + 1
	NotConnected
	ConnectionError
	UserRejected
	ProviderError
	InvalidRequest
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidAmount:
		return "invalid_amount"
	case NotConnected:
		return "not_connected"
	case ConnectionError:
		return "connection_error"
	case UserRejected:
		return "user_rejected"
	case ProviderError:
		return "provider_error"
	case InvalidRequest:
		return "invalid_request"
	}
	return ""
}

// Failure is the error half of every operation result.
type Failure struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func NewFailure(kind ErrorKind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

func Failuref(kind ErrorKind, format string, args ...interface{}) *Failure {
	return NewFailure(kind, fmt.Sprintf(format, args...))
}

func WrapFailure(kind ErrorKind, cause error) *Failure {
	return &Failure{Kind: kind, Message: cause.Error(), cause: cause}
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.cause
}

func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Message == "" || t.Message == f.Message)
}

// KindOf returns ProviderError for errors that carry no kind and 0 for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return 0
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return ProviderError
}
