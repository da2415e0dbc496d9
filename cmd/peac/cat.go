package main

import (
	"github.com/spf13/cobra"

	"github.com/pameecs/peac"
)

func newCatCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <archive> <path>...",
		Short: "Write file contents to stdout",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			// Start every read before writing the first one out.
			pending := make([]*peac.Pending, 0, len(args)-1)
			for _, p := range args[1:] {
				pending = append(pending, a.ReadFileAsync(p))
			}
			for _, p := range pending {
				data, err := p.Await(cmd.Context())
				if err != nil {
					return err
				}
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
