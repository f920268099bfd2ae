package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vrsandeep/techmail/internal/config"
	"github.com/vrsandeep/techmail/internal/core"
)

type cliState struct {
	configDir string
	app       *core.App
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:          "techmail-cli",
		Short:        "Technical Email - manage the recovery mode address of a site",
		Long:         `techmail-cli stores the technical email address, keeps the RECOVERY_MODE_EMAIL declaration in wp-config.php in step with it and checks for plugin updates.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&st.configDir, "config", ".", "directory holding config.yml")

	root.AddCommand(
		newApplyCmd(st),
		newRemoveCmd(st),
		newResolveCmd(st),
		newCheckUpdateCmd(st),
		newHashTokenCmd(),
	)
	return root
}

// withApp opens the application around run and closes it afterwards.
func (st *cliState) withApp(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrom(st.configDir)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		app, err := core.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		st.app = app
		return run(cmd, args)
	}
}
