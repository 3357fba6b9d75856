package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	InputWidth  = 224
	InputHeight = 224
	Channels    = 3

	jpegQuality = 90
	maxPixels   = 64 << 20
)

var (
	errImageDimensions = errors.New("image has no pixels")
	errImageTooBig     = errors.New("image dimensions exceed limit")
)

// Preprocessor decodes an image and lays it out as a [1, H, W, 3] tensor of
// RGB values scaled to [0, 1]. The image is resized, re-encoded as JPEG and
// decoded again so the tensor matches what the model was trained on.
type Preprocessor struct {
	width   int
	height  int
	tensors *TensorPool
	scratch scratchPool
}

func NewPreprocessor(width, height int) *Preprocessor {
	if width <= 0 {
		width = InputWidth
	}
	if height <= 0 {
		height = InputHeight
	}

	return &Preprocessor{
		width:   width,
		height:  height,
		tensors: NewTensorPool(1, int64(height), int64(width), Channels),
	}
}

// Live reports tensors and scratch buffers not yet returned.
func (p *Preprocessor) Live() int64 {
	return p.tensors.Live() + p.scratch.live.Load()
}

// Shape is the tensor shape produced by Preprocess.
func (p *Preprocessor) Shape() []int64 {
	return []int64{1, int64(p.height), int64(p.width), Channels}
}

// Preprocess returns a tensor the caller must Release. No tensor escapes on
// error, including a panic inside a decoder.
func (p *Preprocessor) Preprocess(ctx context.Context, data []byte) (t *Tensor, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	switch {
	case cfg.Width <= 0 || cfg.Height <= 0:
		return nil, errImageDimensions
	case cfg.Width*cfg.Height > maxPixels:
		return nil, errImageTooBig
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	resized := imaging.Resize(img, p.width, p.height, imaging.Linear)

	buf := p.scratch.get()
	defer p.scratch.put(buf)
	if err := imaging.Encode(buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}

	pixels := imaging.Clone(decoded)
	if b := pixels.Bounds(); b.Dx() != p.width || b.Dy() != p.height {
		pixels = imaging.Resize(pixels, p.width, p.height, imaging.NearestNeighbor)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t = p.tensors.Get()
	filled := false
	defer func() {
		if !filled {
			t.Release()
		}
	}()
	fill(t.Data, pixels, p.width, p.height)
	filled = true

	return t, nil
}

// fill writes pixels in NHWC order.
func fill(dst []float32, img *image.NRGBA, width, height int) {
	i := 0
	for y := range height {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := range width {
			px := row[x*4 : x*4+3]
			dst[i] = float32(px[0]) / 255
			dst[i+1] = float32(px[1]) / 255
			dst[i+2] = float32(px[2]) / 255
			i += Channels
		}
	}
}

type scratchPool struct {
	pool sync.Pool
	live atomic.Int64
}

func (s *scratchPool) get() *bytes.Buffer {
	s.live.Add(1)
	if buf, ok := s.pool.Get().(*bytes.Buffer); ok {
		return buf
	}

	return new(bytes.Buffer)
}

func (s *scratchPool) put(buf *bytes.Buffer) {
	buf.Reset()
	s.pool.Put(buf)
	s.live.Add(-1)
}
