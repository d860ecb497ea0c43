package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   "analog",
	Short: "Control plane for the Analog Home installation",
	Long: "Analog tracks the visitor controls that steer the agent: a decaying temperature, " +
		"a three-way vote on the next trajectory, a seed inbox, and the artifact log.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./analog.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "analog server URL for agent commands (default $ANALOG_URL or http://127.0.0.1:8000)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(trajectoryCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(pushFakeCycleCmd)
}
