package main

import (
	"fmt"
	"io/fs"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pameecs/peac"
)

func newListCommand(g *globals) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls <archive> [path]",
		Short: "List archive entries",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			root := "."
			if len(args) == 2 {
				root = peac.NormalizePath(args[1])
			}
			return fs.WalkDir(a, root, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if p == "." || (p == root && d.IsDir()) {
					return nil
				}
				e, err := a.Entry(p)
				if err != nil {
					return err
				}
				printEntry(cmd, p, e, long)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show sizes and payload offsets")
	return cmd
}

func printEntry(cmd *cobra.Command, p string, e peac.Entry, long bool) {
	out := cmd.OutOrStdout()
	if e.IsDir() {
		p += "/"
	}
	switch {
	case !long:
		fmt.Fprintln(out, p)
	case e.IsDir():
		fmt.Fprintf(out, "%10s %12s  %s\n", "-", "-", p)
	default:
		fmt.Fprintf(out, "%10s %12d  %s\n", humanize.IBytes(e.DataSize), e.DataOffset, p)
	}
}
