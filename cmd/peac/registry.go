package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pameecs/peac/registry"
)

// registryFlags configures the registry client for push and pull.
type registryFlags struct {
	plainHTTP bool
	anonymous bool
	username  string
	password  string
}

func (f *registryFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.plainHTTP, "plain-http", false, "use HTTP instead of HTTPS")
	cmd.Flags().BoolVar(&f.anonymous, "anonymous", false, "skip credential lookup")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "registry username")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "registry password")
}

func (f *registryFlags) client(g *globals, cmd *cobra.Command, ref string) (*registry.Client, error) {
	opts := []registry.Option{
		registry.WithPlainHTTP(f.plainHTTP),
		registry.WithUserAgent("peac"),
		registry.WithLogger(g.logger(cmd.ErrOrStderr())),
	}
	switch {
	case f.anonymous:
		opts = append(opts, registry.WithAnonymous())
	case f.username != "":
		host, err := registry.Host(ref)
		if err != nil {
			return nil, err
		}
		opts = append(opts, registry.WithCredentials(host, f.username, f.password))
	default:
		opts = append(opts, registry.WithDockerConfig())
	}
	return registry.New(opts...), nil
}

func newPushCommand(g *globals) *cobra.Command {
	var (
		rf    registryFlags
		title string
		tags  []string
	)
	cmd := &cobra.Command{
		Use:   "push <archive> <ref>",
		Short: "Push an archive to an OCI registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := rf.client(g, cmd, args[1])
			if err != nil {
				return err
			}
			desc, err := c.Push(cmd.Context(), args[1], a,
				registry.WithTitle(title),
				registry.WithTags(tags...),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed %s@%s\n", args[1], desc.Digest)
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "image title annotation")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "additional tags")
	return cmd
}

func newPullCommand(g *globals) *cobra.Command {
	var rf registryFlags
	cmd := &cobra.Command{
		Use:   "pull <ref> <dest>",
		Short: "Pull an archive from an OCI registry and verify it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(g, cmd, args[0])
			if err != nil {
				return err
			}
			a, err := c.Pull(cmd.Context(), args[0], args[1], g.openOptions(cmd)...)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "pulled %s to %s: %d entries\n", args[0], args[1], a.Len())
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}
