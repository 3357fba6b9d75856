// Package inference turns a remote image into labelled detections. Each call
// fetches, preprocesses, classifies and filters exactly once and releases
// every tensor it acquired on all exit paths.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
)

var (
	errEmptyLocator   = errors.New("empty image locator")
	errThresholdRange = errors.New("threshold must be within [0, 1]")
)

type Request struct {
	ImageLocator string  `json:"imageLocator"`
	Threshold    float64 `json:"threshold"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.ImageLocator) == "" {
		return errEmptyLocator
	}
	if math.IsNaN(r.Threshold) || r.Threshold < 0 || r.Threshold > 1 {
		return errThresholdRange
	}

	return nil
}

type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Service interface {
	// Infer runs one inference. A result with no detections is a success.
	Infer(ctx context.Context, req Request) ([]Detection, error)
}

// Response is the single outcome message of an inference task.
type Response struct {
	Objects []Detection
	Err     error
}

type objectsBody struct {
	Objects []Detection `json:"objects"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Body is the wire form of r: either the detections or the error, never both.
func (r Response) Body() any {
	if r.Err != nil {
		return errorBody{
			Error: r.Err.Error(),
			Kind:  KindOf(r.Err).String(),
		}
	}

	objects := r.Objects
	if objects == nil {
		objects = []Detection{}
	}

	return objectsBody{Objects: objects}
}

func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Body())
}
