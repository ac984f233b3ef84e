// Command thermo converts temperatures between the Celsius, Fahrenheit, and
// Kelvin scales, either once from the command line or continuously as an MQTT
// bridge.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/thermo/internal/build"
	"github.com/lone-faerie/thermo/internal/cleanup"
)

// RootCommand is the top-level thermo command.
var RootCommand = &cobra.Command{
	Use:     "thermo [-c config]... <command>",
	Short:   "Convert temperatures between Celsius, Fahrenheit, and Kelvin",
	Version: build.Version(),
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup.Cleanup()
	},
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	SilenceErrors:     true,
	SilenceUsage:      true,
}

func init() {
	RootCommand.AddGroup(
		&cobra.Group{ID: "commands", Title: "Commands:"},
	)

	RootCommand.PersistentFlags().StringSliceVarP(&ConfigPath, "config", "c", nil, "Path(s) to config file/directory")
	RootCommand.MarkPersistentFlagFilename("config", "yaml", "yml")

	RootCommand.AddCommand(
		NewCmdConvert(),
		NewCmdList(),
		NewCmdRun(),
		NewCmdSensors(),
		NewCmdServe(),
		NewCmdStop(),
	)
}

func main() {
	cmd, err := RootCommand.ExecuteC()
	cleanup.Cleanup()
	if err == nil {
		return
	}

	var exit *ExitError
	if errors.As(err, &exit) {
		if exit.Err != nil {
			cmd.PrintErrln("Error:", exit.Err)
		}
		os.Exit(exit.Code)
	}

	cmd.PrintErrln("Error:", err)
	cmd.PrintErrln(cmd.UsageString())
	os.Exit(1)
}
