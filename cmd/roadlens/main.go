package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/roadlens/annotation"
	annmw "github.com/absmach/roadlens/annotation/middleware"
	httpapi "github.com/absmach/roadlens/api/http"
	mqttapi "github.com/absmach/roadlens/api/mqtt"
	"github.com/absmach/roadlens/api/ws"
	"github.com/absmach/roadlens/inference"
	infmw "github.com/absmach/roadlens/inference/middleware"
	"github.com/absmach/roadlens/inference/onnx"
	"github.com/absmach/roadlens/inference/remote"
	"github.com/absmach/roadlens/pkg/jaeger"
	"github.com/absmach/roadlens/pkg/mqtt"
	"github.com/absmach/roadlens/pkg/prometheus"
	"github.com/absmach/roadlens/pkg/server"
	"github.com/absmach/roadlens/pkg/storage"
	"github.com/absmach/roadlens/telemetry"
	telmw "github.com/absmach/roadlens/telemetry/middleware"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "roadlens"
	envPrefix     = "ROADLENS_"
	pathEnv       = ".env"
	wsPath        = "/ws"
	onnxBackend   = "onnx"
	remoteBackend = "remote"
)

type config struct {
	LogLevel   string `env:"LOG_LEVEL"   envDefault:"info"`
	InstanceID string `env:"INSTANCE_ID"`

	Classifier      string   `env:"CLASSIFIER"        envDefault:"onnx"`
	ModelPath       string   `env:"MODEL_PATH"        envDefault:"./models/traffic.onnx"`
	ONNXLibraryPath string   `env:"ONNX_LIBRARY_PATH" envDefault:""`
	ModelInputName  string   `env:"MODEL_INPUT_NAME"  envDefault:"input"`
	ModelOutputName string   `env:"MODEL_OUTPUT_NAME" envDefault:"output"`
	ModelThreads    int      `env:"MODEL_THREADS"     envDefault:"1"`
	ModelSoftmax    bool     `env:"MODEL_SOFTMAX"     envDefault:"false"`
	PreloadModel    bool     `env:"PRELOAD_MODEL"     envDefault:"false"`
	Labels          []string `env:"LABELS"            envDefault:"car,pedestrian,traffic light" envSeparator:","`

	RemoteURL     string        `env:"REMOTE_URL"     envDefault:"https://api-inference.huggingface.co/models/facebook/detr-resnet-50"`
	RemoteToken   string        `env:"REMOTE_TOKEN"   envDefault:""`
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"30s"`

	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT"   envDefault:"5s"`
	MaxImageBytes int64         `env:"MAX_IMAGE_BYTES" envDefault:"20971520"`
	MaxConcurrent int64         `env:"MAX_CONCURRENT"  envDefault:"4"`

	SensorPath string `env:"SENSOR_PATH" envDefault:"sensors.*"`

	MQTTTopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"roadlens"`

	WSAllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	OTELURL    url.URL `env:"OTEL_URL"`
	TraceRatio float64 `env:"TRACE_RATIO" envDefault:"1.0"`

	Server  server.Config `envPrefix:"HTTP_"`
	MQTT    mqtt.Config   `envPrefix:"MQTT_"`
	Storage storage.Config
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	repos, err := storage.NewRepositories(cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize storage", slog.String("error", err.Error()))

		return
	}
	if repos.Closer != nil {
		defer closeWithLog(logger, "storage", repos.Closer)
	}

	var detector *remote.Detector
	if cfg.Classifier == remoteBackend || cfg.RemoteToken != "" {
		detector, err = remote.NewDetector(cfg.RemoteURL, cfg.RemoteToken, remote.WithTimeout(cfg.RemoteTimeout))
		if err != nil {
			logger.Error("failed to initialize remote detector", slog.String("error", err.Error()))

			return
		}
	}

	prep := inference.NewPreprocessor(inference.InputWidth, inference.InputHeight)

	model, err := newModel(cfg, prep, detector, logger)
	if err != nil {
		logger.Error("failed to initialize classifier", slog.String("error", err.Error()))

		return
	}
	if cfg.Classifier == onnxBackend {
		defer func() {
			if err := onnx.Shutdown(); err != nil {
				logger.Error("failed to shut down onnx runtime", slog.String("error", err.Error()))
			}
		}()
	}
	defer closeWithLog(logger, "model", model)

	if cfg.PreloadModel {
		if _, err := model.Load(ctx); err != nil {
			logger.Error("failed to preload model", slog.String("error", err.Error()))

			return
		}
	}

	fetcher := inference.NewHTTPFetcher(
		inference.WithFetchTimeout(cfg.FetchTimeout),
		inference.WithMaxImageBytes(cfg.MaxImageBytes),
	)

	infSvc := inference.NewWorker(model, fetcher, prep, cfg.Labels, logger)
	infSvc = infmw.Logging(logger, infSvc)
	infSvc = infmw.Tracing(tracer, infSvc)
	duration, failures := prometheus.MakeWorkerMetrics(reg, "worker", "prediction")

	runner := inference.NewRunner(infSvc, cfg.MaxConcurrent, logger, inference.WithMetrics(duration, failures))
	defer runner.Wait()

	telSvc := telemetry.NewAggregator(logger, telemetry.WithPath(telemetry.ParsePath(cfg.SensorPath)...))
	telSvc = telmw.Logging(logger, telSvc)
	telSvc = telmw.Tracing(tracer, telSvc)
	counter, latency := prometheus.MakeMetrics(reg, "telemetry", "api")
	telSvc = telmw.Metrics(counter, latency, telSvc)

	annSvc := annotation.NewService(repos.Annotations, logger)
	annSvc = annmw.Logging(logger, annSvc)
	annSvc = annmw.Tracing(tracer, annSvc)
	annCounter, annLatency := prometheus.MakeMetrics(reg, "annotations", "api")
	annSvc = annmw.Metrics(annCounter, annLatency, annSvc)

	if cfg.MQTT.Address != "" {
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = svcName + "-" + cfg.InstanceID
		}
		if cfg.MQTT.StatusTopic == "" {
			cfg.MQTT.StatusTopic = cfg.MQTTTopicPrefix + "/status"
		}
		pubsub, err := mqtt.NewPubSub(cfg.MQTT, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := pubsub.Disconnect(context.Background()); err != nil {
				logger.Error("failed to disconnect mqtt pubsub", slog.String("error", err.Error()))
			}
		}()

		mh := mqttapi.NewHandler(cfg.MQTTTopicPrefix, pubsub, runner, annSvc, logger)
		if err := mh.Subscribe(ctx); err != nil {
			logger.Error("failed to subscribe to inference topics", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := mh.Unsubscribe(context.Background()); err != nil {
				logger.Warn("failed to unsubscribe from inference topics", slog.String("error", err.Error()))
			}
		}()
	}

	var suggester ws.Suggester
	if detector != nil {
		suggester = detector
	}

	mux := httpapi.MakeHandler(httpapi.Services{
		Inference:   runner,
		Telemetry:   telSvc,
		Annotations: annSvc,
	}, reg, logger, cfg.InstanceID)
	mux.Handle(wsPath, ws.NewHandler(runner, suggester, annSvc, logger, ws.WithAllowedOrigins(cfg.WSAllowedOrigins...)))

	hs := server.NewHTTPServer(ctx, cancel, svcName, cfg.Server, mux, logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}

func newModel(cfg config, prep *inference.Preprocessor, detector *remote.Detector, logger *slog.Logger) (*inference.Model, error) {
	switch cfg.Classifier {
	case onnxBackend:
		loader := onnx.NewLoader(onnx.Config{
			LibraryPath: cfg.ONNXLibraryPath,
			ModelPath:   cfg.ModelPath,
			InputName:   cfg.ModelInputName,
			OutputName:  cfg.ModelOutputName,
			InputShape:  prep.Shape(),
			Classes:     len(cfg.Labels),
			Threads:     cfg.ModelThreads,
			Softmax:     cfg.ModelSoftmax,
		})

		return inference.NewModel(loader, logger), nil
	case remoteBackend:
		clf := remote.NewClassifier(detector, cfg.Labels)
		loader := func(context.Context) (inference.Classifier, error) {
			return clf, nil
		}

		return inference.NewModel(loader, logger, inference.Concurrent()), nil
	default:
		return nil, fmt.Errorf("unsupported classifier %q", cfg.Classifier)
	}
}

func closeWithLog(logger *slog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Error(fmt.Sprintf("failed to close %s", name), slog.String("error", err.Error()))
	}
}
