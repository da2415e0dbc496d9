package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pameecs/peac"
)

// globals holds the flags shared by every subcommand.
type globals struct {
	workers   int
	verbose   bool
	legacyCRC bool
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "peac",
		Short:         "Pack, inspect, and extract PEAC archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVarP(&g.workers, "workers", "w", 0, "worker goroutines (0 = GOMAXPROCS)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().BoolVar(&g.legacyCRC, "legacy-crc", false, "use the MSB-first CRC-64 footer variant")

	root.AddCommand(
		newPackCommand(g),
		newListCommand(g),
		newCatCommand(g),
		newExtractCommand(g),
		newVerifyCommand(g),
		newInfoCommand(g),
		newPushCommand(g),
		newPullCommand(g),
		newBenchCommand(g),
	)
	return root
}

func (g *globals) logger(w io.Writer) *slog.Logger {
	if !g.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (g *globals) checksum() peac.Checksum {
	if g.legacyCRC {
		return peac.ChecksumECMAMSB
	}
	return peac.ChecksumECMA
}

func (g *globals) openOptions(cmd *cobra.Command, extra ...peac.Option) []peac.Option {
	opts := []peac.Option{
		peac.WithLogger(g.logger(cmd.ErrOrStderr())),
		peac.WithChecksum(g.checksum()),
	}
	if g.workers > 0 {
		opts = append(opts, peac.WithWorkers(g.workers))
	}
	return append(opts, extra...)
}

func (g *globals) open(cmd *cobra.Command, path string, extra ...peac.Option) (*peac.Archive, error) {
	return peac.Open(path, g.openOptions(cmd, extra...)...)
}
