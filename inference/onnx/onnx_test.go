package onnx_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/absmach/roadlens/inference/onnx"
	"github.com/stretchr/testify/assert"
)

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc string
		cfg  onnx.Config
	}{
		{desc: "missing model path", cfg: onnx.Config{Classes: 3}},
		{desc: "no classes", cfg: onnx.Config{ModelPath: "model.onnx"}},
		{desc: "model file absent", cfg: onnx.Config{ModelPath: filepath.Join(t.TempDir(), "none.onnx"), Classes: 3}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			clf, err := onnx.NewLoader(tc.cfg)(context.Background())
			assert.Error(t, err)
			assert.Nil(t, clf)
		})
	}
}

func TestSoftmax(t *testing.T) {
	t.Parallel()

	scores := []float32{1, 2, 3}
	onnx.Softmax(scores)

	var sum float32
	for _, s := range scores {
		sum += s
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Less(t, scores[0], scores[1])
	assert.Less(t, scores[1], scores[2])
	assert.InDelta(t, 0.665241, scores[2], 1e-5)

	onnx.Softmax(nil)
}
