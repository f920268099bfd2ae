package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newApplyCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <address>",
		Short: "Save the technical address and write it to wp-config.php",
		Long:  `Saves the address and rewrites the RECOVERY_MODE_EMAIL declaration. An empty address restores the default.`,
		Args:  cobra.ExactArgs(1),
		RunE: st.withApp(func(cmd *cobra.Command, args []string) error {
			effective, err := st.app.Resolver().Save(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Technical address: %s\n", effective)
			return nil
		}),
	}
}

func newRemoveCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the RECOVERY_MODE_EMAIL declaration from wp-config.php",
		Args:  cobra.NoArgs,
		RunE: st.withApp(func(cmd *cobra.Command, args []string) error {
			if _, err := st.app.Patcher().Update("", true); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Declaration removed.")
			return nil
		}),
	}
}

func newResolveCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the address notifications are sent to",
		Args:  cobra.NoArgs,
		RunE: st.withApp(func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, st.app.Resolver().Resolve())
			if declared, ok := st.app.Patcher().Current(); ok {
				fmt.Fprintf(out, "wp-config.php: %s\n", declared)
			} else {
				fmt.Fprintln(out, "wp-config.php: not declared")
			}
			return nil
		}),
	}
}
