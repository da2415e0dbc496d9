package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pameecs/peac/internal/file"
)

func newExtractCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <archive> <dest>",
		Short: "Extract every entry into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			dest := args[1]
			var files int
			err = fs.WalkDir(a, ".", func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if ctxErr := cmd.Context().Err(); ctxErr != nil {
					return ctxErr
				}
				target := filepath.Join(dest, filepath.FromSlash(p))
				if d.IsDir() {
					return os.MkdirAll(target, 0o755)
				}
				data, err := a.ReadFile(p)
				if err != nil {
					return err
				}
				files++
				return file.WriteFileAtomic(target, data, 0o644)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files to %s\n", files, dest)
			return nil
		},
	}
}
