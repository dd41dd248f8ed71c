package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgFile string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "droidpilot",
	Short: "Objective-driven mobile app test runner",
	Long: `Droidpilot runs scenario files against an Android device through an
Appium server, using an LLM oracle to plan actions, judge progress and
recover from obstructions.

Get started:
  droidpilot validate scenario.yaml   Check a scenario file
  droidpilot run scenario.yaml        Run a scenario end to end`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .droidpilot/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.SetVersionTemplate(fmt.Sprintf("droidpilot version %s\n", version))
}
