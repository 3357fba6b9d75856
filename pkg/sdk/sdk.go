package sdk

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const CTJSON string = "application/json"

type PageMetadata struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type SDK interface {
	// Infer runs one inference on the server. A failed inference returns the
	// decoded result alongside the error.
	//
	// example:
	//  res, _ := sdk.Infer(sdk.InferenceRequest{
	//    ImageLocator: "https://example.com/street.jpg",
	//    Threshold:    0.5,
	//  })
	//  fmt.Println(res.Objects)
	Infer(req InferenceRequest) (InferenceResult, error)

	// Aggregate streams a sensor document to the server and returns the mean
	// speed per vehicle.
	//
	// example:
	//  f, _ := os.Open("sensors.json")
	//  speeds, _ := sdk.Aggregate(f)
	//  fmt.Println(speeds)
	Aggregate(r io.Reader) (map[string]float64, error)

	// SaveAnnotation stores an annotation.
	//
	// example:
	//  a, _ := sdk.SaveAnnotation(map[string]any{"label": "car"})
	//  fmt.Println(a.ID)
	SaveAnnotation(data map[string]any) (Annotation, error)

	// ViewAnnotation gets an annotation by id.
	//
	// example:
	//  a, _ := sdk.ViewAnnotation("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(a)
	ViewAnnotation(id string) (Annotation, error)

	// ListAnnotations lists annotations, newest first.
	//
	// example:
	//  page, _ := sdk.ListAnnotations(0, 10)
	//  fmt.Println(page)
	ListAnnotations(offset, limit uint64) (AnnotationPage, error)

	// DeleteAnnotation deletes an annotation.
	//
	// example:
	//  _ = sdk.DeleteAnnotation("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	DeleteAnnotation(id string) error
}

type roadlensSDK struct {
	serverURL string
	client    *http.Client
}

type Config struct {
	ServerURL       string
	TLSVerification bool
	Timeout         time.Duration
}

func NewSDK(cfg Config) SDK {
	return &roadlensSDK{
		serverURL: strings.TrimSuffix(cfg.ServerURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

// Error is a response with an unexpected status code. Message holds the
// server's error text when the body carries one.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected response code: %d", e.StatusCode)
	}

	return fmt.Sprintf("unexpected response code: %d: %s", e.StatusCode, e.Message)
}

func (sdk *roadlensSDK) processRequest(method, reqURL string, data io.Reader, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, data)
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return body, &Error{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	return body, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}

	return e.Error
}
