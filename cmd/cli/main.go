package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/absmach/roadlens"
	"github.com/absmach/roadlens/cli"
	"github.com/absmach/roadlens/pkg/sdk"
	"github.com/spf13/cobra"
)

const defConfigPath = "roadlens.toml"

func main() {
	var (
		configPath string
		serverURL  string
		logLevel   string
		tlsVerify  bool
	)

	rootCmd := &cobra.Command{
		Use:   "roadlens-cli",
		Short: "Roadlens CLI",
		Long:  `Roadlens CLI aggregates vehicle telemetry and talks to a roadlens server for inference and annotations.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cfg, err := roadlens.LoadConfig(configPath)
			if err != nil && (cmd.Flags().Changed("config") || !errors.Is(err, os.ErrNotExist)) {
				log.Fatalf("failed to load configuration: %s", err)
			}
			if cmd.Flags().Changed("server") {
				cfg.Server.URL = serverURL
			}

			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}))

			cli.SetConfig(cfg)
			cli.SetLogger(logger)
			cli.SetSDK(sdk.NewSDK(sdk.Config{
				ServerURL:       cfg.Server.URL,
				TLSVerification: tlsVerify,
				Timeout:         time.Minute,
			}))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defConfigPath, "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", roadlens.DefaultServerURL, "Server URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level for local pipelines")
	rootCmd.PersistentFlags().BoolVar(&tlsVerify, "tls-verify", true, "Verify the server TLS certificate")

	rootCmd.AddCommand(cli.NewAggregateCmd())
	rootCmd.AddCommand(cli.NewInferCmd())
	rootCmd.AddCommand(cli.NewAnnotationsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
