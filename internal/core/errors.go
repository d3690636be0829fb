package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUpstreamUnreachable marks a transport-level failure talking to the upstream API.
var ErrUpstreamUnreachable = errors.New("upstream unreachable")

// ErrorKind classifies a failed generation.
type ErrorKind int

const (
	KindUnhandled ErrorKind = iota
	KindUpstreamUnreachable
	KindUpstreamHTTP
	KindEmptyResult
	KindValidation
	KindMissingInputImage
)

func (k ErrorKind) String() string {
	switch k {
	case KindUpstreamUnreachable:
		return "upstream_unreachable"
	case KindUpstreamHTTP:
		return "upstream_http"
	case KindEmptyResult:
		return "empty_result"
	case KindValidation:
		return "validation"
	case KindMissingInputImage:
		return "missing_input_image"
	default:
		return "unhandled"
	}
}

// HTTPStatus is the status code the HTTP surface answers with for this kind.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindUpstreamUnreachable:
		return http.StatusBadGateway
	case KindValidation, KindMissingInputImage:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GenerationError is the error value carried through the generation pipeline.
// Message is safe to show to the client; Cause is for logs only.
type GenerationError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// NewGenerationError creates a new generation error
func NewGenerationError(kind ErrorKind, message string, cause error) *GenerationError {
	return &GenerationError{Kind: kind, Message: message, Cause: cause}
}

// ErrUnreachable upstream connection failure
func ErrUnreachable(cause error) *GenerationError {
	return NewGenerationError(KindUpstreamUnreachable, MsgUpstreamUnreachable, cause)
}

// ErrUpstreamHTTP upstream answered with a non-2xx status; the body is passed through verbatim.
func ErrUpstreamHTTP(status int, body []byte) *GenerationError {
	return NewGenerationError(KindUpstreamHTTP, fmt.Sprintf("API error: %d, %s", status, string(body)), nil)
}

// ErrEmptyResult upstream returned no images
func ErrEmptyResult() *GenerationError {
	return NewGenerationError(KindEmptyResult, MsgEmptyResult, nil)
}

// ErrValidation invalid caller input
func ErrValidation(format string, args ...any) *GenerationError {
	return NewGenerationError(KindValidation, fmt.Sprintf(format, args...), nil)
}

// ErrMissingInputImage img2img called without a source image
func ErrMissingInputImage() *GenerationError {
	return NewGenerationError(KindMissingInputImage, MsgMissingInputImage, nil)
}

// ErrUnhandled wraps an unexpected failure behind the generic client message.
func ErrUnhandled(cause error) *GenerationError {
	return NewGenerationError(KindUnhandled, MsgUnexpected, cause)
}

// StatusAndMessage maps any error to the HTTP status and client message of the error envelope.
// Errors that are not a GenerationError never leak their text.
func StatusAndMessage(err error) (int, string) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind.HTTPStatus(), genErr.Message
	}
	return http.StatusInternalServerError, MsgUnexpected
}

// OutcomeSuccess is the outcome label of a generation that returned an image.
const OutcomeSuccess = "success"

// OutcomeOf returns the metrics outcome label for a generation result.
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind.String()
	}
	return KindUnhandled.String()
}
