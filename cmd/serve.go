package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/thermo/api"
	"github.com/lone-faerie/thermo/bridge"
	"github.com/lone-faerie/thermo/log"
)

// NewCmdServe returns the [cobra.Command] used for serving the HTTP API
// without a bridge.
func NewCmdServe() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Serve conversions and sensor readings over HTTP",
		Long: `Serve temperature conversions and the readings of the host sensors over HTTP until a signal is received.

Endpoints:

	- GET  /convert?value=V&from=C&to=F   convert one or more values
	- POST /convert?from=C&to=F           convert a reading such as {"value": 21.5, "unit": "C"}
	- GET  /scales                        list the temperature scales
	- GET  /sensors?to=F                  read every host sensor
	- GET  /sensors/{id}?to=F             read a single host sensor
	- GET  /history?target=T&limit=N      stored readings of a target, when history is enabled
	- GET  /metrics                       prometheus metrics, unless disabled in the config
	- GET  /healthz                       health check

When the API is served by 'thermo run', /routes and /stats report the routes and counters of the bridge, and /healthz fails while the bridge is disconnected.

The default for "to" is the scale of the config and the default for "from" is celsius.`,
		Example: `  thermo serve --addr :8080
  curl 'localhost:8080/convert?value=100&to=F'`,
		GroupID: "commands",
		RunE:    runServe,
	}

	cmd.Flags().StringVarP(&HTTPAddr, "addr", "a", "", "Address to listen on (default is the address of the config)")
	cmd.Flags().StringVarP(&LogLevel, "log", "l", "", "Log level")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{err, 1}
	}
	if err = flagsToConfig(cfg, nil); err != nil {
		return &ExitError{err, 2}
	}
	setLogHandler(cfg, log.LevelDebug)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []api.Option{api.WithSensors(bridge.HostSensors(&cfg.Sensors)...)}
	if cfg.History.Enabled {
		store, err := openHistory(ctx, cfg)
		if err != nil {
			return &ExitError{err, 1}
		}
		opts = append(opts, api.WithHistory(store))
	}

	srv, err := api.New(cfg, opts...)
	if err != nil {
		return &ExitError{err, 1}
	}

	if err = srv.ListenAndServe(ctx); err != nil {
		return &ExitError{err, 1}
	}
	log.Info("Done")
	return nil
}
