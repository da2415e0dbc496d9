package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pameecs/peac"
)

func newInfoCommand(g *globals) *cobra.Command {
	var withDigest bool
	cmd := &cobra.Command{
		Use:   "info <archive>",
		Short: "Show header, size, and checksum information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			info := a.Info()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "version:\t%s\n", info.Version)
			fmt.Fprintf(w, "size:\t%s\n", humanize.IBytes(uint64(info.Size))) //nolint:gosec // size is non-negative
			fmt.Fprintf(w, "entries:\t%d\n", info.Entries)
			fmt.Fprintf(w, "chunks:\t%d\n", info.Chunks)
			fmt.Fprintf(w, "entry tree:\t%s -> %s\n",
				humanize.IBytes(uint64(info.EntryCompressed)), humanize.IBytes(uint64(info.EntryUncompressed)))
			fmt.Fprintf(w, "chunk index:\t%s -> %s\n",
				humanize.IBytes(info.ChunkIndexCompressed), humanize.IBytes(info.ChunkIndexUncompressed))
			fmt.Fprintf(w, "chunk data:\t%s -> %s\n",
				humanize.IBytes(info.ChunkDataCompressed), humanize.IBytes(uint64(info.Chunks)*peac.ChunkSize))
			fmt.Fprintf(w, "checksum:\t%016x (%s)\n", info.Checksum, info.ChecksumVariant)
			if withDigest {
				d, err := a.Digest()
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "digest:\t%s\n", d)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&withDigest, "digest", false, "also compute the sha256 digest of the file")
	return cmd
}
