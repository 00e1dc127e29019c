package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"coachai/internal/workflow"
)

func newDecodeCmd() *cobra.Command {
	var flow string
	cmd := &cobra.Command{
		Use:   "decode <envelope.json>",
		Short: "Decode a saved workflow envelope and print the analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read envelope: %w", err)
			}
			var env workflow.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return fmt.Errorf("parse envelope: %w", err)
			}

			var out any
			switch strings.ToLower(strings.TrimSpace(flow)) {
			case "pose":
				sd, msg, err := workflow.DecodePose(&env)
				if err != nil {
					return err
				}
				out = struct {
					UserPoseImage      string                 `json:"userPoseImage,omitempty"`
					ReferencePoseImage string                 `json:"referencePoseImage,omitempty"`
					Message            *workflow.FinalMessage `json:"message"`
				}{sd.UserPoseImage, sd.ReferencePoseImage, msg}
			case "issue":
				diag, err := workflow.DecodeIssue(&env)
				if err != nil {
					return err
				}
				out = diag
			default:
				return fmt.Errorf("unknown flow %q (want pose or issue)", flow)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&flow, "flow", "pose", "Workflow the envelope came from: pose or issue")
	return cmd
}
