package sdk

import (
	"encoding/json"
	"io"
	"net/http"
)

const aggregateEndpoint = "/telemetry/aggregate"

func (sdk *roadlensSDK) Aggregate(r io.Reader) (map[string]float64, error) {
	url := sdk.serverURL + aggregateEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, r, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var res map[string]float64
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}

	return res, nil
}
