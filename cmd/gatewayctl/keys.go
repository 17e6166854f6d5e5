package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/eleven-am/streamsight/internal/credentials"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the Gemini API key slots discovered in the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := credentials.FromEnv(os.LookupEnv, slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err != nil {
				return err
			}

			stats := pool.Stats()
			labels := make([]string, 0, len(stats))
			for label := range stats {
				labels = append(labels, label)
			}
			sort.Strings(labels)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d key(s) discovered\n", len(labels))
			for _, label := range labels {
				marker := ""
				if stats[label].IsCurrent {
					marker = " (current)"
				}
				fmt.Fprintf(out, "  %s%s\n", label, marker)
			}
			return nil
		},
	}
}
