package cli

import (
	"github.com/absmach/roadlens/pkg/sdk"
	"github.com/spf13/cobra"
)

func NewInferCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "infer <locator>",
		Short: "Classify an image",
		Long: `Run one inference on the server and print the detections above the threshold.

Examples:
  roadlens-cli infer https://example.com/street.jpg --threshold 0.6`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Inference.Threshold
			}

			res, err := rsdk.Infer(sdk.InferenceRequest{
				ImageLocator: args[0],
				Threshold:    threshold,
			})
			if err != nil {
				if res.Kind != "" {
					logJSONCmd(*cmd, res)
				}
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, res)
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Minimum confidence in [0, 1]")

	return cmd
}
