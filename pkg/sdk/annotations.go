package sdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const annotationsEndpoint = "/annotations"

type Annotation struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

type AnnotationPage struct {
	PageMetadata
	Total       uint64       `json:"total"`
	Annotations []Annotation `json:"annotations"`
}

func (sdk *roadlensSDK) SaveAnnotation(data map[string]any) (Annotation, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Annotation{}, err
	}

	url := sdk.serverURL + annotationsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, bytes.NewReader(payload), http.StatusCreated)
	if err != nil {
		return Annotation{}, err
	}

	var a Annotation
	if err := json.Unmarshal(body, &a); err != nil {
		return Annotation{}, err
	}

	return a, nil
}

func (sdk *roadlensSDK) ViewAnnotation(id string) (Annotation, error) {
	url := sdk.serverURL + annotationsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Annotation{}, err
	}

	var a Annotation
	if err := json.Unmarshal(body, &a); err != nil {
		return Annotation{}, err
	}

	return a, nil
}

func (sdk *roadlensSDK) ListAnnotations(offset, limit uint64) (AnnotationPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}
	url := sdk.serverURL + annotationsEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return AnnotationPage{}, err
	}

	var page AnnotationPage
	if err := json.Unmarshal(body, &page); err != nil {
		return AnnotationPage{}, err
	}

	return page, nil
}

func (sdk *roadlensSDK) DeleteAnnotation(id string) error {
	url := sdk.serverURL + annotationsEndpoint + "/" + id

	if _, err := sdk.processRequest(http.MethodDelete, url, nil, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}
