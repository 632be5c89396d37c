package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxterm/voxctl/pkg/version"
	"github.com/voxterm/voxctl/pkg/voxctl/output"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show voxctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetBuildInfo()

			rt, _ := getRuntime(cmd)
			writer := cmd.OutOrStdout()
			format := output.FormatText
			if rt != nil {
				writer = rt.Writer()
				format = output.Format(rt.outputFormat)
			}

			if format != output.FormatText && format != "" {
				return output.WriteObject(writer, format, info)
			}
			_, _ = fmt.Fprintf(writer, "voxctl %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildDate)
			return nil
		},
	}
}
