package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var runID, outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a run's artifacts into another directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			dst, err := client.Export(runID, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported=%s\n", dst)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&runID, "run-id", "", "Run to export")
	f.StringVar(&outDir, "out", "", "Destination directory")
	_ = cmd.MarkFlagRequired("run-id")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
