package main

import (
	"errors"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/log"
)

// Flags for thermo stop
var (
	StopPID int // PID of the bridge process
)

// NewCmdStop returns the [cobra.Command] used for stopping a running bridge.
// The bridge is stopped by sending SIGINT if --pid is given, otherwise by
// publishing to the stop topic of the bridge.
//
// Usage:
//
//	thermo stop [flags] [topic]
//
// Flags:
//
//	-b, --broker string     MQTT broker address
//	-p, --port int          MQTT broker port (default 1883)
//	    --username string   MQTT client username
//	    --password string   MQTT client password
//	    --cert string       MQTT TLS certificate file (PEM encoded)
//	    --key string        MQTT TLS private key file (PEM encoded)
//	-P, --pid int           PID of the process
//	-h, --help              help for stop
func NewCmdStop() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stop [flags] [topic]",
		Short:   "Stop running bridge",
		GroupID: "commands",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) (err error) {
			log.SetLogLevel(log.LevelWarn)
			if cfg, err = loadConfig(); err != nil {
				return
			}
			if err = flagsToConfig(cfg, nil); err != nil {
				return
			}
			setLogHandler(cfg, log.LevelWarn)
			log.Debug("MQTT broker", "addr", cfg.MQTT.Broker)
			return
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if StopPID > 0 {
				log.Debug("Stopping", "pid", StopPID)
				err := unix.Kill(StopPID, unix.SIGINT)
				if err == nil {
					return nil
				}
				if !errors.Is(err, unix.ESRCH) {
					return err
				}
			}

			topic := config.ReplaceBase(cfg.TopicPrefix, "~/bridge/stop")
			if len(args) > 0 {
				topic = args[0]
			}

			return publishStop(mqtt.NewClient(cfg.MQTT.ClientOptions()), topic)
		},
	}

	cmd.Flags().SortFlags = false
	addBrokerFlags(cmd)
	cmd.Flags().IntVarP(&StopPID, "pid", "P", 0, "PID of the process")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func publishStop(client mqtt.Client, topic string) error {
	t := client.Connect()
	t.Wait()
	if err := t.Error(); err != nil {
		return err
	}
	defer client.Disconnect(500)

	log.Debug("Publishing stop", "topic", topic)
	t = client.Publish(topic, 0, false, []byte{})
	t.Wait()
	return t.Error()
}
