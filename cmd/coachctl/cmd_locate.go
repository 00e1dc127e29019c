package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"coachai/internal/artifact"
)

func newLocateCmd() *cobra.Command {
	var exprs []string
	cmd := &cobra.Command{
		Use:   "locate <doc.json>",
		Short: "Show which query finds the inline image in a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			queries := artifact.DefaultImageQueries
			if len(exprs) > 0 {
				queries = make([]*artifact.Query, 0, len(exprs))
				for _, e := range exprs {
					q, err := artifact.CompileQuery(e)
					if err != nil {
						return err
					}
					queries = append(queries, q)
				}
			}

			m, ok, err := artifact.LocateJSON(raw, queries)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "No match (%d queries tried)\n", len(queries))
				return artifact.ErrArtifactNotFound
			}
			fmt.Fprintf(out, "Query:   %s\n", m.Query)
			fmt.Fprintf(out, "Matches: %d\n", len(m.Values))
			fmt.Fprintf(out, "Length:  %d\n", len(m.Value()))
			if mm, ok, _ := artifact.LocateJSON(raw, artifact.DefaultMIMEQueries); ok {
				fmt.Fprintf(out, "MIME:    %s\n", mm.Value())
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&exprs, "query", nil, "Locator query to try instead of the defaults (repeatable)")
	return cmd
}
