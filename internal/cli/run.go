package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/droidpilot/droidpilot/internal/config"
	"github.com/droidpilot/droidpilot/internal/device"
	"github.com/droidpilot/droidpilot/internal/driver"
	"github.com/droidpilot/droidpilot/internal/events"
	"github.com/droidpilot/droidpilot/internal/oracle"
	"github.com/droidpilot/droidpilot/internal/planner"
	"github.com/droidpilot/droidpilot/internal/scenario"
	"github.com/droidpilot/droidpilot/internal/types"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runModel         string
	runServerURL     string
	runMaxIterations int
	runEventLog      string
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario against a device",
	Long: `Run a scenario end to end: connect to the Appium server, break the
scenario into objectives, then loop plan / execute / reassess until every
objective is achieved or the run fails.

The process exits 0 only when the run verdict is pass. Interrupting with
Ctrl-C stops the run at the next safe point and reports partial progress.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if runModel != "" {
			cfg.Oracle.Model = runModel
		}
		if runServerURL != "" {
			cfg.Appium.ServerURL = runServerURL
		}
		if runMaxIterations > 0 {
			cfg.Run.MaxReplanIterations = runMaxIterations
		}
		if runEventLog != "" {
			cfg.Run.EventLog = runEventLog
		}

		sc, err := scenario.Load(args[0])
		if err != nil {
			return err
		}

		apiKey := os.Getenv(cfg.Oracle.APIKeyEnv)
		if apiKey == "" {
			return fmt.Errorf("%s is not set", cfg.Oracle.APIKeyEnv)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client := oracle.NewClient(apiKey, cfg.Oracle.BaseURL, cfg.Oracle.Model)

		// Explicit goal lists skip the decomposition call entirely
		var parser oracle.GoalParser
		if len(sc.Goals) > 0 {
			parser = &scenario.ListParser{Goals: sc.Goals}
		} else {
			parser = &oracle.RetryingParser{Inner: client}
		}

		caps := make(map[string]any, len(cfg.Appium.Capabilities)+1)
		for k, v := range cfg.Appium.Capabilities {
			caps[k] = v
		}
		if _, ok := caps["appium:appPackage"]; !ok {
			caps["appium:appPackage"] = sc.App
		}

		session, err := device.NewSession(ctx, cfg.Appium.ServerURL, caps)
		if err != nil {
			return err
		}
		defer session.Close(context.Background())

		sinks := []events.Sink{events.NewConsoleSink(noColor)}
		if cfg.Run.EventLog != "" {
			f, err := os.OpenFile(cfg.Run.EventLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("cannot open event log: %w", err)
			}
			defer f.Close()
			sinks = append(sinks, events.NewJSONLSink(f))
		}
		emitter := events.NewEmitter(uuid.NewString(), sinks...)

		drv := driver.New(driver.Deps{
			Parser:   parser,
			Oracle:   oracle.WithRetry(client),
			Builder:  planner.NewBuilder(oracle.WithRetry(client), cfg.Run.MaxPlanActions),
			Executor: device.NewAgent(session, client),
			Screen:   session,
			Emitter:  emitter,
		}, driver.Config{
			MaxReplanIterations: cfg.Run.MaxReplanIterations,
			MaxReconnectRetries: cfg.Run.MaxReconnectRetries,
		})

		result := drv.Run(ctx, sc.GoalText())
		emitter.Close()

		printResult(sc.Name, result)
		if result.Verdict != types.VerdictPass {
			return fmt.Errorf("scenario %q failed", sc.Name)
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Load(cwd)
}

func printResult(name string, result *driver.Result) {
	verdictColor := color.New(color.FgGreen, color.Bold)
	if result.Verdict != types.VerdictPass {
		verdictColor = color.New(color.FgRed, color.Bold)
	}
	if noColor {
		verdictColor.DisableColor()
	}

	fmt.Println()
	fmt.Printf("%s: %s\n", name, verdictColor.Sprint(result.Verdict))
	fmt.Printf("  objectives: %d/%d completed\n", result.Completed, result.Total)
	fmt.Printf("  replan iterations: %d\n", result.Iterations)
	if result.Reason != "" {
		fmt.Printf("  stopped: %s\n", result.Reason)
	}
	if result.Message != "" {
		fmt.Printf("\n%s\n", result.Message)
	}
}

func init() {
	runCmd.Flags().StringVar(&runModel, "model", "", "oracle model override")
	runCmd.Flags().StringVar(&runServerURL, "server", "", "Appium server URL override")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "replan iteration budget override")
	runCmd.Flags().StringVar(&runEventLog, "event-log", "", "append run events to a JSONL file")
	rootCmd.AddCommand(runCmd)
}
