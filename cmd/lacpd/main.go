// lacpd is an IEEE 802.1AX Link Aggregation Control Protocol daemon.
//
// Noun-verb CLI pattern:
//
//	lacpd run --config /etc/lacpd/lacpd.yaml
//	lacpd show ports
//	lacpd show sports
//	lacpd show stats <port>
//
// `run` starts the daemon: the protocol engine (C5), its single-goroutine
// dispatcher (C6), and the X1-X5 adapters wired together per the loaded
// config file. `show` subcommands are a thin client against the running
// daemon's status endpoint, the same HTTP listener that serves /metrics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/lacpd/pkg/version"
)

// App holds CLI state shared across commands.
type App struct {
	configPath string
	daemonAddr string
	jsonOutput bool
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "lacpd",
	Short:         "IEEE 802.1AX Link Aggregation Control Protocol daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `lacpd runs the Receive, Periodic Transmission, and Mux state machines
and the Selection Logic for one or more aggregated links, reading member
configuration from CONFIG_DB-shaped Redis keys and driving the kernel
bonding driver and raw AF_PACKET sockets as its forwarding and PDU planes.

  lacpd run --config /etc/lacpd/lacpd.yaml
  lacpd show ports
  lacpd show sports
  lacpd show stats <port>`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Engine configuration file (default /etc/lacpd/lacpd.yaml)")
	rootCmd.PersistentFlags().StringVar(&app.daemonAddr, "daemon-addr", "", "Running daemon's status address (default the config file's metrics_listen_addr)")
	showCmd.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "JSON output")

	rootCmd.AddCommand(runCmd, showCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lacpd " + version.Info())
	},
}
