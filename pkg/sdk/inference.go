package sdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
)

const inferenceEndpoint = "/inference"

type InferenceRequest struct {
	ImageLocator string  `json:"imageLocator"`
	Threshold    float64 `json:"threshold"`
}

type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type InferenceResult struct {
	Objects []Detection `json:"objects,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

func (sdk *roadlensSDK) Infer(req InferenceRequest) (InferenceResult, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return InferenceResult{}, err
	}

	url := sdk.serverURL + inferenceEndpoint

	body, reqErr := sdk.processRequest(http.MethodPost, url, bytes.NewReader(data), http.StatusOK)

	var res InferenceResult
	if len(body) > 0 {
		if err := json.Unmarshal(body, &res); err != nil {
			return InferenceResult{}, errors.Join(reqErr, err)
		}
	}
	if reqErr != nil {
		return res, reqErr
	}
	if res.Objects == nil {
		res.Objects = []Detection{}
	}

	return res, nil
}
