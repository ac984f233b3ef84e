package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/thermo/api"
	"github.com/lone-faerie/thermo/bridge"
	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/history"
	"github.com/lone-faerie/thermo/internal/cleanup"
	"github.com/lone-faerie/thermo/log"
)

// Flags for thermo run
var (
	Watch  bool // Reload the routes when the config changes
	Detach bool // Run detached (in background)
)

var cfg *config.Config

// NewCmdRun returns the [cobra.Command] used for running the bridge.
func NewCmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run [--config <path>]... [flags] [route]...",
		Aliases: []string{"start"},
		Short:   "Run the conversion bridge",
		Long: `Run a bridge that converts the temperature readings published to the MQTT broker.

A connection to the MQTT broker will be established and the bridge will run in the foreground until a signal is received.

	- SIGINT or SIGTERM will gracefully shutdown the bridge.

Every route of the config subscribes to a topic of readings in one scale and publishes them, converted to another scale, to its target topic. A reading is either a bare number or a JSON object such as {"value": 21.5, "unit": "C"}, where the unit overrides the scale of the route.

Thermo can load configuration from multiple YAML files, including from directories. If no config file is specified, the default path(s) will be determined by the first defined value of $THERMO_CONFIG_PATH, $XDG_CONFIG_HOME/thermo.yaml, or $HOME/.config/thermo.yaml. In the case of $THERMO_CONFIG_PATH, the value may be a comma-separated list of paths. If none of these files exist, the default configuration will be used, which looks for the following environment variables:

	- broker:   $THERMO_BROKER_ADDRESS
	- username: $THERMO_BROKER_USERNAME
	- password: $THERMO_BROKER_PASSWORD

Routes may be selected by supplying their topic or name as arguments. With --watch, the routes are reloaded whenever the config changes.

With --http, or when enabled in the config, the HTTP API is served alongside the bridge. See 'thermo serve --help' for its endpoints.

All of the flags, if specified, will override the equivalent values in the config. The format of --broker should be scheme://host:port Where "scheme" is one of "tcp", "ssl", or "ws", "host" is the ip-address (or hostname) and "port" is the port on which the broker is accepting connections. If "scheme" is not defined, it defaults to "tcp" and if "port" is not defined, it will use the value of --port (default 1883).`,
		Example: `  thermo run --config config.yaml
  thermo run --config config.yaml --watch sensors/attic
  thermo run --config config.yaml --http :8080
  thermo run --broker 127.0.0.1:1883 --username thermo --password p@55w0rd`,
		GroupID: "commands",
		PreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if Detach {
				var code int
				if err = runDetached(); err != nil {
					code = 1
				}
				return &ExitError{err, code}
			}

			if err = PrintBanner(cmd); err != nil {
				cmd.Println(err)
			}

			if cfg, err = loadConfig(); err != nil {
				return
			}
			if err = flagsToConfig(cfg, args); err != nil {
				return
			}
			log.Info("Config loaded")
			setLogHandler(cfg, log.LevelDebug)
			log.Debug("MQTT broker", "addr", cfg.MQTT.Broker)
			if err := cfg.Validate(); err != nil {
				log.WarnError("Config has invalid routes", err)
			}
			return nil
		},
		RunE: runBridge,

		DisableFlagsInUseLine: true,
	}

	cmd.Flags().SortFlags = false
	addBrokerFlags(cmd)
	cmd.Flags().StringVarP(&Discovery, "discovery", "D", "", "Discovery prefix, or 'disabled' to disable")
	cmd.Flags().StringVarP(&LogLevel, "log", "l", "", "Log level")
	cmd.Flags().BoolVarP(&Watch, "watch", "w", false, "Reload the routes when the config changes")
	cmd.Flags().StringVar(&HTTPAddr, "http", "", "Serve the HTTP API on the given address")
	cmd.Flags().BoolVarP(&Detach, "detach", "d", false, "Run detached (in background)")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func runDetached() error {
	c := exec.Command(os.Args[0], os.Args[1:]...)
	if errors.Is(c.Err, exec.ErrDot) {
		c.Err = nil
	}
	c.Args = slices.DeleteFunc(c.Args, func(s string) bool { return s == "-d" || s == "--detach" })
	return c.Start()
}

// watchConfig reloads the routes of b whenever the config changes.
func watchConfig(ctx context.Context, b *bridge.Bridge, args []string) {
	w := config.NewWatcher(func(next *config.Config) {
		if err := flagsToConfig(next, args); err != nil {
			log.Error("Invalid config", err)
			return
		}
		if err := next.Validate(); err != nil {
			log.WarnError("Config has invalid routes", err)
		}
		if err := b.Reload(ctx, next.Routes); err != nil {
			log.Error("Unable to reload routes", err)
			return
		}
		log.Info("Routes reloaded", "count", len(b.Routes()))
	}, ConfigPath...)

	if err := w.Watch(ctx); err != nil {
		log.Error("Unable to watch config", err)
	}
}

// openHistory opens the history database of cfg and prunes it until ctx is done.
// The database is closed by [cleanup.Cleanup].
func openHistory(ctx context.Context, cfg *config.Config) (*history.Store, error) {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	cleanup.Register(func() { store.Close() })
	log.Info("History opened", "path", cfg.History.Path, "retention", cfg.History.Retention)
	go store.Retain(ctx, cfg.History.Retention, time.Hour)
	return store, nil
}

func runBridge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		opts  []bridge.Option
		store *history.Store
	)
	if cfg.History.Enabled {
		var err error
		if store, err = openHistory(ctx, cfg); err != nil {
			return &ExitError{err, 1}
		}
		opts = append(opts, bridge.WithHistory(store))
	}

	b, err := bridge.New(cfg, opts...)
	if err != nil {
		return &ExitError{err, 1}
	}
	if err := b.ConnectRetry(ctx, cfg.MQTT.ConnectRetry); err != nil {
		if ctx.Err() != nil {
			log.Debug("Received signal")
			return nil
		}
		log.Error("Not connected.", err)
		return &ExitError{err, 1}
	}
	defer func() {
		cancel()
		b.Disconnect()
		log.Info("Done")
	}()

	b.Start(ctx)
	select {
	case err := <-b.Ready():
		if err != nil {
			return &ExitError{err, 1}
		}
		if err := b.Discover(ctx); err != nil {
			log.WarnError("Unable to publish discovery", err)
		}
	case <-ctx.Done():
		return nil
	}

	if Watch {
		go watchConfig(ctx, b, args)
	}

	if cfg.HTTP.Enabled {
		apiOpts := []api.Option{api.WithBridge(b)}
		if store != nil {
			apiOpts = append(apiOpts, api.WithHistory(store))
		}
		srv, err := api.New(cfg, apiOpts...)
		if err != nil {
			return &ExitError{err, 1}
		}
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Error("HTTP API stopped", err)
				b.Disconnect()
			}
		}()
	}

	select {
	case <-b.Done():
	case <-ctx.Done():
		log.Debug("Received signal")
	}
	return nil
}
