package inference_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/absmach/roadlens/inference"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

func grayPNG(t *testing.T, w, h int, level uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: level, G: level, B: level, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

// newImageServer serves a gray PNG at /gray/{level} and raw bytes at /raw.
func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /gray/{level}", func(w http.ResponseWriter, r *http.Request) {
		level, err := strconv.Atoi(r.PathValue("level"))
		if err != nil || level < 0 || level > 255 {
			http.Error(w, "bad level", http.StatusBadRequest)

			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(grayPNG(t, 64, 48, uint8(level)))
	})
	mux.HandleFunc("GET /raw", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("definitely not an image"))
	})
	mux.HandleFunc("GET /missing", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func staticLoader(clf inference.Classifier) inference.Loader {
	return func(context.Context) (inference.Classifier, error) {
		return clf, nil
	}
}

func fixedScores(scores ...float32) inference.Classifier {
	return inference.ClassifierFunc(func(context.Context, *inference.Tensor) ([]float32, error) {
		return append([]float32(nil), scores...), nil
	})
}

func base64PNG(t *testing.T) string {
	t.Helper()

	return base64.StdEncoding.EncodeToString(grayPNG(t, 8, 8, 200))
}
