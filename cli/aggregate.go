package cli

import (
	"io"
	"os"

	"github.com/absmach/roadlens/telemetry"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func NewAggregateCmd() *cobra.Command {
	var (
		path   string
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate <file>",
		Short: "Mean speed per vehicle",
		Long: `Stream a sensor JSON file and print the mean speed of every vehicle.

Examples:
  # Aggregate locally using the configured record path
  roadlens-cli aggregate sensors.json

  # Records nested under another key
  roadlens-cli aggregate readings.json --path data.sensors.*

  # Send the file to the server instead
  roadlens-cli aggregate sensors.json --remote`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			f, err := os.Open(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			defer f.Close()

			size := int64(-1)
			if fi, err := f.Stat(); err == nil {
				size = fi.Size()
			}

			bar := progressbar.NewOptions64(size,
				progressbar.OptionSetDescription("Aggregating"),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowBytes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			r := io.TeeReader(f, bar)

			var res map[string]float64
			switch {
			case remote:
				res, err = rsdk.Aggregate(r)
			default:
				if !cmd.Flags().Changed("path") {
					path = cfg.Telemetry.Path
				}
				svc := telemetry.NewAggregator(logger, telemetry.WithPath(telemetry.ParsePath(path)...))
				res, err = svc.Aggregate(cmd.Context(), r)
			}
			_ = bar.Finish()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, res)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Dotted path to the record collection, e.g. data.sensors.*")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "Aggregate on the server")

	return cmd
}
