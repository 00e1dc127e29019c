package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"coachai/internal/artifact"
)

func newExtractCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "extract <input>",
		Short: "Decode a data URI, base64 text, or JSON document into bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			decoded, err := artifact.DecodeArtifact(string(raw))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "MIME:      %s\n", decoded.ContentType())
			fmt.Fprintf(out, "Size:      %d\n", len(decoded.Data))
			fmt.Fprintf(out, "Extension: %s\n", decoded.Extension())
			if outPath == "" {
				return nil
			}
			if err := os.WriteFile(outPath, decoded.Data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "Wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the decoded bytes to this file")
	return cmd
}
