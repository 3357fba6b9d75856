package cli_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/roadlens"
	"github.com/absmach/roadlens/annotation"
	httpapi "github.com/absmach/roadlens/api/http"
	"github.com/absmach/roadlens/cli"
	"github.com/absmach/roadlens/inference"
	"github.com/absmach/roadlens/pkg/sdk"
	"github.com/absmach/roadlens/pkg/storage"
	"github.com/absmach/roadlens/telemetry"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inferFunc func(ctx context.Context, req inference.Request) ([]inference.Detection, error)

func (f inferFunc) Infer(ctx context.Context, req inference.Request) ([]inference.Detection, error) {
	return f(ctx, req)
}

func setup(t *testing.T) {
	t.Helper()

	color.NoColor = true
	logger := slog.New(slog.DiscardHandler)
	infer := inferFunc(func(_ context.Context, req inference.Request) ([]inference.Detection, error) {
		if req.Threshold > 0.7 {
			return []inference.Detection{}, nil
		}

		return []inference.Detection{{Label: "car", Confidence: 0.7}}, nil
	})
	svcs := httpapi.Services{
		Inference:   inference.NewRunner(infer, 1, logger),
		Telemetry:   telemetry.NewAggregator(logger),
		Annotations: annotation.NewService(storage.NewInMemoryRepository(), logger),
	}
	ts := httptest.NewServer(httpapi.MakeHandler(svcs, prometheus.NewRegistry(), logger, ""))
	t.Cleanup(ts.Close)

	cli.SetSDK(sdk.NewSDK(sdk.Config{ServerURL: ts.URL}))
	cli.SetConfig(roadlens.DefaultConfig())
	cli.SetLogger(logger)
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	return stdout.String(), stderr.String()
}

func writeSensors(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sensors.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestAggregateCmd(t *testing.T) {
	setup(t)

	path := writeSensors(t, `{"sensors":[{"vehicle_id":"A","speed":10},{"vehicle_id":"A","speed":30}],"data":{"sensors":[{"vehicle_id":"B","speed":2}]}}`)

	out, _ := execute(t, cli.NewAggregateCmd(), path)
	assert.Contains(t, out, `"A": 20`)

	out, _ = execute(t, cli.NewAggregateCmd(), path, "--path", "data.sensors.*")
	assert.Contains(t, out, `"B": 2`)
	assert.NotContains(t, out, `"A"`)

	out, _ = execute(t, cli.NewAggregateCmd(), path, "--remote")
	assert.Contains(t, out, `"A": 20`)

	_, errOut := execute(t, cli.NewAggregateCmd(), writeSensors(t, `{"sensors":[`))
	assert.Contains(t, errOut, "sensor stream parse error")

	out, _ = execute(t, cli.NewAggregateCmd())
	assert.Contains(t, out, "usage: aggregate <file>")
}

func TestInferCmd(t *testing.T) {
	setup(t)

	out, _ := execute(t, cli.NewInferCmd(), "http://images/car.png")
	assert.Contains(t, out, `"label": "car"`)

	out, _ = execute(t, cli.NewInferCmd(), "http://images/car.png", "--threshold", "0.9")
	assert.NotContains(t, out, `"label"`)
}

func TestAnnotationsCmd(t *testing.T) {
	setup(t)

	out, _ := execute(t, cli.NewAnnotationsCmd(), "save", `{"label":"car"}`)
	assert.Contains(t, out, `"label": "car"`)

	out, _ = execute(t, cli.NewAnnotationsCmd(), "list")
	assert.Contains(t, out, `"total": 1`)

	_, errOut := execute(t, cli.NewAnnotationsCmd(), "view", "missing")
	assert.Contains(t, errOut, "404")

	_, errOut = execute(t, cli.NewAnnotationsCmd(), "save", `not json`)
	assert.Contains(t, errOut, "error:")
}
