package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pameecs/peac"
)

func newVerifyCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check the footer checksum and decompress every file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Open already checks the footer; reading every file exercises
			// each chunk's compressed frame.
			a, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				files   int
				total   uint64
				pending []*peac.Pending
				sizes   []uint64
			)
			err = a.Walk(func(_ string, e peac.Entry) error {
				if a.IsFile(e) {
					pending = append(pending, a.ReadEntryAsync(e))
					sizes = append(sizes, e.DataSize)
				}
				return nil
			})
			if err != nil {
				return err
			}
			for i, p := range pending {
				data, err := p.Await(cmd.Context())
				if err != nil {
					return err
				}
				if uint64(len(data)) != sizes[i] {
					return fmt.Errorf("%w: read %d bytes, want %d", peac.ErrIntegrity, len(data), sizes[i])
				}
				files++
				total += sizes[i]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d files, %s\n", args[0], files, humanize.IBytes(total))
			return nil
		},
	}
}
