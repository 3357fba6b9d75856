// Package remote talks to a hosted object detection endpoint that accepts a
// base64 image and answers with labelled bounding boxes.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/absmach/roadlens/inference"
	"github.com/disintegration/imaging"
)

const (
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 4 << 20
	jpegQuality      = 90
)

var (
	errEndpoint         = errors.New("detector endpoint is required")
	errUnexpectedStatus = errors.New("unexpected detector status")
	errTensorShape      = errors.New("tensor is not [1, H, W, 3]")
)

// Suggestion is a detected box in source image pixels.
type Suggestion struct {
	ID         int64   `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type box struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

type detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Box   box     `json:"box"`
}

type detectRequest struct {
	Inputs string `json:"inputs"`
}

type Option func(*Detector)

func WithHTTPClient(client *http.Client) Option {
	return func(d *Detector) {
		if client != nil {
			d.client = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// Detector is safe for concurrent use.
type Detector struct {
	url     string
	token   string
	client  *http.Client
	timeout time.Duration
	now     func() time.Time
}

func NewDetector(url, token string, opts ...Option) (*Detector, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errEndpoint
	}
	d := &Detector{
		url:     url,
		token:   token,
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Detect sends raw image bytes.
func (d *Detector) Detect(ctx context.Context, img []byte) ([]Suggestion, error) {
	return d.post(ctx, base64.StdEncoding.EncodeToString(img))
}

// Suggest accepts an image as sent by browser clients, either a data URI or a
// bare base64 string.
func (d *Detector) Suggest(ctx context.Context, img string) ([]Suggestion, error) {
	if strings.HasPrefix(img, "data:") {
		if _, payload, ok := strings.Cut(img, ","); ok {
			img = payload
		}
	}

	return d.post(ctx, img)
}

func (d *Detector) post(ctx context.Context, payload string) ([]Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body, err := json.Marshal(detectRequest{Inputs: payload})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %s", errUnexpectedStatus, resp.Status, strings.TrimSpace(string(data)))
	}

	var dets []detection
	if err := json.Unmarshal(data, &dets); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}

	base := d.now().UnixMilli()
	suggestions := make([]Suggestion, 0, len(dets))
	for i, det := range dets {
		suggestions = append(suggestions, Suggestion{
			ID:         base + int64(i),
			X:          det.Box.XMin,
			Y:          det.Box.YMin,
			Width:      det.Box.XMax - det.Box.XMin,
			Height:     det.Box.YMax - det.Box.YMin,
			Label:      det.Label,
			Confidence: det.Score,
		})
	}

	return suggestions, nil
}

var _ inference.Classifier = (*Classifier)(nil)

// Classifier scores a tensor by asking the detector and keeping the best
// confidence per known label. Labels the detector never reports score zero.
type Classifier struct {
	detector *Detector
	labels   []string
}

func NewClassifier(detector *Detector, labels []string) *Classifier {
	if len(labels) == 0 {
		labels = inference.DefaultLabels
	}

	return &Classifier{
		detector: detector,
		labels:   labels,
	}
}

func (c *Classifier) Classify(ctx context.Context, t *inference.Tensor) ([]float32, error) {
	img, err := toImage(t)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	suggestions, err := c.detector.Detect(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}

	scores := make([]float32, len(c.labels))
	for _, s := range suggestions {
		for i, label := range c.labels {
			if strings.EqualFold(s.Label, label) {
				scores[i] = max(scores[i], float32(s.Confidence))
			}
		}
	}

	return scores, nil
}

// toImage rebuilds an RGB image from an NHWC tensor scaled to [0, 1].
func toImage(t *inference.Tensor) (*image.NRGBA, error) {
	if t == nil || len(t.Shape) != 4 || t.Shape[0] != 1 || t.Shape[3] != inference.Channels {
		return nil, errTensorShape
	}
	h, w := int(t.Shape[1]), int(t.Shape[2])
	if len(t.Data) != h*w*inference.Channels {
		return nil, errTensorShape
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, px := 0, 0; i < len(t.Data); i, px = i+inference.Channels, px+4 {
		img.Pix[px] = channel(t.Data[i])
		img.Pix[px+1] = channel(t.Data[i+1])
		img.Pix[px+2] = channel(t.Data[i+2])
		img.Pix[px+3] = 0xff
	}

	return img, nil
}

func channel(v float32) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}
