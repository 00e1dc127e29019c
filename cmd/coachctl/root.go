// coachctl runs the workflow decoding pipeline offline.
//
// Usage:
//
//	coachctl decode --flow=pose|issue <envelope.json>
//	coachctl locate [--query=<expr>]... <doc.json>
//	coachctl extract <input> [-o <file>]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coachctl",
		Short:         "Decode workflow envelopes and extract inline images",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newLocateCmd())
	root.AddCommand(newExtractCmd())
	root.Version = version
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
