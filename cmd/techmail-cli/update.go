package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckUpdateCmd(st *cliState) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "check-update [version]",
		Short: "Check the release descriptor for a newer plugin version",
		Long:  `Compares the remote release with the given version, or with plugin.version from the configuration.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: st.withApp(func(cmd *cobra.Command, args []string) error {
			installed := st.app.Config().Plugin.Version
			if len(args) == 1 {
				installed = args[0]
			}
			if fresh {
				if err := st.app.ReleaseCache().Invalidate(); err != nil {
					return err
				}
			}

			d, ok := st.app.ReleaseCache().Get(cmd.Context())
			if !ok {
				return fmt.Errorf("release descriptor unavailable")
			}

			out := cmd.OutOrStdout()
			if adv, ok := st.app.Reconciler().CheckForUpdate(cmd.Context(), installed); ok {
				fmt.Fprintf(out, "Update available: %s -> %s\n", installed, adv.NewVersion)
				fmt.Fprintf(out, "Package: %s\n", adv.Package)
				return nil
			}
			fmt.Fprintf(out, "Up to date: %s (remote %s)\n", installed, d.Version)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore the cached descriptor")
	return cmd
}
