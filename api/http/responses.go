package api

import (
	"net/http"

	"github.com/absmach/roadlens/annotation"
	"github.com/absmach/roadlens/inference"
	"github.com/absmach/roadlens/pkg/api"
	"github.com/absmach/roadlens/telemetry"
)

var (
	_ api.Response = (*inferenceResponse)(nil)
	_ api.Response = (*aggregateResponse)(nil)
	_ api.Response = (*annotationResponse)(nil)
	_ api.Response = (*listAnnotationsResponse)(nil)
)

// inferenceResponse carries the task outcome in the body whether or not it
// failed, so the status code is derived from the failure kind.
type inferenceResponse struct {
	inference.Response
}

func (res inferenceResponse) Code() int {
	if res.Err == nil {
		return http.StatusOK
	}

	return inferenceStatus(inference.KindOf(res.Err))
}

func (res inferenceResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res inferenceResponse) Empty() bool {
	return false
}

func inferenceStatus(kind inference.Kind) int {
	switch kind {
	case inference.KindInvalidRequest:
		return http.StatusBadRequest
	case inference.KindImageFetch:
		return http.StatusBadGateway
	case inference.KindPreprocess:
		return http.StatusUnprocessableEntity
	case inference.KindModelLoad, inference.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type aggregateResponse telemetry.Result

func (res aggregateResponse) Code() int {
	return http.StatusOK
}

func (res aggregateResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res aggregateResponse) Empty() bool {
	return false
}

type annotationResponse struct {
	annotation.Annotation
	created bool
	deleted bool
}

func (res annotationResponse) Code() int {
	if res.created {
		return http.StatusCreated
	}
	if res.deleted {
		return http.StatusNoContent
	}

	return http.StatusOK
}

func (res annotationResponse) Headers() map[string]string {
	if res.created {
		return map[string]string{
			"Location": "/annotations/" + res.ID,
		}
	}

	return map[string]string{}
}

func (res annotationResponse) Empty() bool {
	return res.deleted
}

type listAnnotationsResponse struct {
	annotation.Page
}

func (res listAnnotationsResponse) Code() int {
	return http.StatusOK
}

func (res listAnnotationsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res listAnnotationsResponse) Empty() bool {
	return false
}
