package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pameecs/peac"
)

func newPackCommand(g *globals) *cobra.Command {
	var (
		level    int
		maxFiles int
	)
	cmd := &cobra.Command{
		Use:   "pack <dir> <archive>",
		Short: "Pack a directory into an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, dest := args[0], args[1]
			err := peac.CreateFile(cmd.Context(), dir, dest,
				peac.CreateWithLevel(level),
				peac.CreateWithMaxFiles(maxFiles),
				peac.CreateWithChecksum(g.checksum()),
				peac.CreateWithWorkers(g.workers),
				peac.CreateWithLogger(g.logger(cmd.ErrOrStderr())),
			)
			if err != nil {
				return err
			}
			a, err := g.open(cmd, dest)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries, %d chunks, %s\n",
				dest, a.Len(), a.ChunkCount(), humanize.IBytes(uint64(a.Size()))) //nolint:gosec // size is non-negative
			return nil
		},
	}
	cmd.Flags().IntVarP(&level, "level", "l", 0, "zstd compression level (0 = default)")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "maximum number of files (0 = default, negative = unlimited)")
	return cmd
}
