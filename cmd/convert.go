package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/thermo/bridge"
	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/temperature"
)

// Flags for thermo convert
var (
	ConvertFrom   string // Scale converted from
	ConvertTo     string // Scale converted to (default is the scale of the config)
	ConvertStrict bool   // Fail on an invalid conversion instead of printing the sentinel
	ConvertSymbol bool   // Print the unit symbol after each value
)

// NewCmdConvert returns the [cobra.Command] used for converting values given as
// arguments.
//
// Each VALUE may end with a unit code, such as 100F, which overrides --from for
// that value. Negative values must come after "--".
//
// Usage:
//
//	thermo convert [flags] VALUE...
//
// Aliases:
//
//	convert, c
//
// Flags:
//
//	-f, --from string   Scale converted from (default "C")
//	-t, --to string     Scale converted to
//	    --strict        Fail on an invalid conversion
//	-s, --symbol        Print the unit symbol after each value
//	-h, --help          help for convert
func NewCmdConvert() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "convert [flags] VALUE...",
		Aliases: []string{"c"},
		Short:   "Convert temperatures",
		Long: `Convert each VALUE from one scale to another and print the results, one per line.

A scale is given by its unit code (C, F, or K), its name, or its symbol, ignoring case. If --to is not given, the scale of the config is used, which defaults to Celsius.

A VALUE at or below absolute zero converts to absolute zero of the target scale. If either unit code is unknown, the invalid sentinel value is printed, unless --strict is given in which case thermo exits with an error.`,
		Example: `  thermo convert -t F 100
  thermo convert -t kelvin 32F 212F
  thermo convert -f K -t C -- -5`,
		GroupID: "commands",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runConvert,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&ConvertFrom, "from", "f", "C", "Scale converted from")
	cmd.Flags().StringVarP(&ConvertTo, "to", "t", "", "Scale converted to")
	cmd.Flags().BoolVar(&ConvertStrict, "strict", false, "Fail on an invalid conversion")
	cmd.Flags().BoolVarP(&ConvertSymbol, "symbol", "s", false, "Print the unit symbol after each value")

	cmd.RegisterFlagCompletionFunc("from", completeScale)
	cmd.RegisterFlagCompletionFunc("to", completeScale)

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func completeScale(_ *cobra.Command, _ []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
	comps := make([]cobra.Completion, 0, len(temperature.Scales))
	for _, s := range temperature.Scales {
		comps = append(comps, cobra.CompletionWithDesc(string(rune(s)), s.String()))
	}
	return comps, cobra.ShellCompDirectiveNoFileComp
}

// unitCode returns the unit code denoted by s. A single character is returned
// as is, so unknown codes reach [temperature.Convert].
func unitCode(s string) (byte, error) {
	t := strings.TrimPrefix(strings.TrimSpace(s), "°")
	if len(t) == 1 {
		return t[0], nil
	}
	sc, err := temperature.ParseScaleString(s)
	if err != nil {
		return 0, err
	}
	return byte(sc), nil
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// parseValue parses a VALUE argument. A trailing unit code replaces from.
func parseValue(arg string, from byte) (float32, byte, error) {
	s := strings.TrimSpace(arg)
	if n := len(s); n > 1 && isLetter(s[n-1]) {
		from = s[n-1]
		s = strings.TrimSuffix(s[:n-1], "°")
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, 0, fmt.Errorf("invalid value %q", arg)
	}
	return float32(v), from, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	log.SetLogLevel(log.LevelWarn)

	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{err, 1}
	}
	setLogHandler(cfg, log.LevelWarn)

	from, err := unitCode(ConvertFrom)
	if err != nil {
		return &ExitError{err, 2}
	}

	to := byte(cfg.Scale)
	if ConvertTo != "" {
		if to, err = unitCode(ConvertTo); err != nil {
			return &ExitError{err, 2}
		}
	}

	w := cmd.OutOrStdout()
	var b []byte

	for _, arg := range args {
		v, src, err := parseValue(arg, from)
		if err != nil {
			return &ExitError{err, 2}
		}

		out := temperature.Convert(v, src, to)
		if out == temperature.Invalid {
			err = fmt.Errorf("%w: cannot convert %q to %q", temperature.ErrInvalidScale, src, to)
			if ConvertStrict {
				return &ExitError{err, 1}
			}
			log.WarnError("Invalid conversion", err, "value", arg)
		}

		b = bridge.AppendValue(b[:0], out)
		if ConvertSymbol && out != temperature.Invalid {
			if sc, err := temperature.ParseScale(to); err == nil {
				b = append(b, sc.Symbol()...)
			}
		}
		b = append(b, '\n')

		if _, err = w.Write(b); err != nil {
			return err
		}
	}

	return nil
}
