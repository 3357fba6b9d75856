package inference

import (
	"errors"
	"fmt"
)

// Kind tags the step an inference failed in.
type Kind uint8

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindModelLoad
	KindImageFetch
	KindPreprocess
	KindClassify
	KindCanceled
)

var (
	ErrInternal       = errors.New("inference failed")
	ErrInvalidRequest = errors.New("invalid inference request")
	ErrModelLoad      = errors.New("model loading failed")
	ErrImageFetch     = errors.New("image fetch failed")
	ErrPreprocess     = errors.New("image preprocessing failed")
	ErrClassify       = errors.New("classification failed")
	ErrCanceled       = errors.New("inference canceled")

	errPanic = errors.New("recovered from panic")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindModelLoad:
		return "model_load"
	case KindImageFetch:
		return "image_fetch"
	case KindPreprocess:
		return "preprocess"
	case KindClassify:
		return "classify"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindModelLoad:
		return ErrModelLoad
	case KindImageFetch:
		return ErrImageFetch
	case KindPreprocess:
		return ErrPreprocess
	case KindClassify:
		return ErrClassify
	case KindCanceled:
		return ErrCanceled
	default:
		return ErrInternal
	}
}

// Error is the structured failure of a single inference. It matches both the
// sentinel of its Kind and the underlying cause with errors.Is.
type Error struct {
	Kind    Kind
	Locator string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}

	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}

	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf reports the kind carried by err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}
