package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/thermo/bridge"
	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/discovery"
	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/temperature"
)

// Flags for thermo list
var (
	ListSummary bool // Display a summary of the scales
	ListRoutes  bool // List the routes of the config instead of the scales
)

// NewCmdList returns the [cobra.Command] used for listing the temperature scales.
//
// If scales are given as arguments, only those are listed. If --summary is
// specified, the list is a comma-separated list of unit codes. If --routes is
// specified, the bridge routes of the config are listed instead.
//
// Usage:
//
//	thermo list [flags] [scale]...
//
// Aliases:
//
//	list, l
//
// Flags:
//
//	-s, --summary   Display a summary of the scales
//	-r, --routes    List the routes of the config
//	-h, --help      help for list
func NewCmdList() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list [flags] [scale]...",
		Aliases: []string{"l"},
		Short:   "List temperature scales",
		GroupID: "commands",
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
			return completeScale(cmd, args, toComplete)
		},
		RunE: listScales,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().BoolVarP(&ListSummary, "summary", "s", false, "Display a summary of the scales")
	cmd.Flags().BoolVarP(&ListRoutes, "routes", "r", false, "List the routes of the config")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func printScales(w io.Writer, scales []temperature.Scale) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "SCALE\tCODE\tSYMBOL\tABSOLUTE ZERO")
	for _, s := range scales {
		fmt.Fprintf(tw, "%s\t%c\t%s\t%s\n",
			discovery.Title(s.String()),
			byte(s),
			s.Symbol(),
			bridge.AppendValue(nil, s.AbsoluteZero()),
		)
	}

	return tw.Flush()
}

func printSummary(w io.Writer, scales []temperature.Scale) {
	for i, s := range scales {
		if i > 0 {
			w.Write([]byte{',', ' '})
		}

		w.Write([]byte{byte(s)})
	}

	w.Write([]byte{'\n'})
}

func printRoutes(w io.Writer, routes []config.RouteConfig) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "NAME\tTOPIC\tFROM\tTO\tTARGET")
	for _, r := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Topic, r.From, r.To, r.Target)
	}

	return tw.Flush()
}

func listScales(cmd *cobra.Command, args []string) error {
	log.SetLogLevel(log.LevelWarn)

	if ListRoutes {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		setLogHandler(cfg, log.LevelWarn)
		cfg.SetRoutes(args...)

		return printRoutes(cmd.OutOrStdout(), cfg.Routes)
	}

	scales := temperature.Scales
	if len(args) > 0 {
		scales = make([]temperature.Scale, 0, len(args))

		for _, arg := range args {
			s, err := temperature.ParseScaleString(arg)
			if err != nil {
				return err
			}

			scales = append(scales, s)
		}
	}

	if ListSummary {
		printSummary(cmd.OutOrStdout(), scales)
		return nil
	}

	return printScales(cmd.OutOrStdout(), scales)
}
