package cli

import (
	"fmt"

	"github.com/droidpilot/droidpilot/internal/scenario"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>",
	Short: "Check a scenario file without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scenario.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", sc.Name)
		fmt.Printf("  app: %s\n", sc.App)
		if len(sc.Goals) > 0 {
			fmt.Printf("  goals: %d\n", len(sc.Goals))
		} else {
			fmt.Println("  goals: parsed from instructions at run time")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
