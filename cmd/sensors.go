package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/thermo/bridge"
	"github.com/lone-faerie/thermo/internal/sysfs"
	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/temperature"
)

// Flags for thermo sensors
var (
	SensorsTo temperature.Scale // Scale the readings are converted to
)

// NewCmdSensors returns the [cobra.Command] used for reading the temperature
// sensors of the host.
//
// Usage:
//
//	thermo sensors [flags] [sensor]...
//
// Flags:
//
//	-t, --to scale   Scale converted to (default is the scale of the config)
//	-h, --help       help for sensors
func NewCmdSensors() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensors [flags] [sensor]...",
		Short: "Read the temperature sensors of the host",
		Long: `Read the hwmon and thermal zone temperature sensors of the host and print them converted to the given scale.

If sensors are given as arguments, only the sensors with those ids are read. The ids are those printed in the SENSOR column and used in the include list of the sensors config.`,
		GroupID: "commands",
		RunE:    readSensors,
	}

	SensorsTo = 0
	cmd.Flags().VarP(&SensorsTo, "to", "t", "Scale converted to")
	cmd.RegisterFlagCompletionFunc("to", completeScale)

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func printSensors(w io.Writer, sensors []sysfs.Sensor, to temperature.Scale) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "SENSOR\tTEMPERATURE\tCRITICAL")
	for i := range sensors {
		s := &sensors[i]

		c, err := s.Read()
		if err != nil {
			log.WarnError("Unable to read sensor", err, "sensor", s.ID())
			continue
		}

		v := temperature.Convert(c, byte(temperature.Celsius), byte(to))
		crit := "-"
		if s.Max > 0 {
			crit = string(bridge.AppendValue(nil, temperature.Convert(s.Critical(), byte(temperature.Celsius), byte(to)))) + to.Symbol()
		}

		fmt.Fprintf(tw, "%s\t%s%s\t%s\n", s.ID(), bridge.AppendValue(nil, v), to.Symbol(), crit)
	}

	return tw.Flush()
}

func readSensors(cmd *cobra.Command, args []string) error {
	log.SetLogLevel(log.LevelWarn)

	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{err, 1}
	}
	setLogHandler(cfg, log.LevelWarn)

	to := SensorsTo
	if to == 0 {
		to = cfg.Sensors.Scale
	}

	sensors, err := sysfs.Sensors()
	if err != nil {
		return &ExitError{err, 1}
	}

	if len(args) > 0 {
		cfg.Sensors.Include = args
	}
	included := sensors[:0]
	for _, s := range sensors {
		if cfg.Sensors.Includes(s.ID()) {
			included = append(included, s)
		}
	}

	if len(included) == 0 {
		return &ExitError{fmt.Errorf("no temperature sensors found"), 1}
	}

	return printSensors(cmd.OutOrStdout(), included, to)
}
