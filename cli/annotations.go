package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
)

func annotationsCmds() []cobra.Command {
	return []cobra.Command{
		{
			Use:   "save <JSON_data>",
			Short: "Save annotation",
			Long: `Save an annotation.

Examples:
  roadlens-cli annotations save '{"label":"car","x":12,"y":40,"width":80,"height":35}'`,
			Run: func(cmd *cobra.Command, args []string) {
				if len(args) != 1 {
					logUsageCmd(*cmd, cmd.Use)

					return
				}

				var data map[string]any
				if err := json.Unmarshal([]byte(args[0]), &data); err != nil {
					logErrorCmd(*cmd, err)

					return
				}

				a, err := rsdk.SaveAnnotation(data)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logJSONCmd(*cmd, a)
			},
		},
		{
			Use:   "list",
			Short: "List annotations",
			Long:  `List annotations, newest first.`,
			Run: func(cmd *cobra.Command, args []string) {
				if len(args) != 0 {
					logUsageCmd(*cmd, cmd.Use)

					return
				}

				page, err := rsdk.ListAnnotations(defOffset, defLimit)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logJSONCmd(*cmd, page)
			},
		},
		{
			Use:   "view <id>",
			Short: "View annotation",
			Long:  `View annotation.`,
			Run: func(cmd *cobra.Command, args []string) {
				if len(args) != 1 {
					logUsageCmd(*cmd, cmd.Use)

					return
				}

				a, err := rsdk.ViewAnnotation(args[0])
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logJSONCmd(*cmd, a)
			},
		},
		{
			Use:   "delete <id>",
			Short: "Delete annotation",
			Long:  `Delete annotation.`,
			Run: func(cmd *cobra.Command, args []string) {
				if len(args) != 1 {
					logUsageCmd(*cmd, cmd.Use)

					return
				}

				if err := rsdk.DeleteAnnotation(args[0]); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logOKCmd(*cmd)
			},
		},
	}
}

func NewAnnotationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotations [save|list|view|delete]",
		Short: "Annotations management",
		Long:  `Save, list, view and delete annotations.`,
	}

	subCmds := annotationsCmds()
	for i := range subCmds {
		cmd.AddCommand(&subCmds[i])
	}

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}
