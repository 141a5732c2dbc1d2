package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/lacpd/pkg/lacp/config"
	"github.com/newtron-network/lacpd/pkg/lacp/dispatch"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show live state from a running daemon",
}

func init() {
	showCmd.AddCommand(showPortsCmd, showSportsCmd, showStatsCmd)
}

var showPortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Show every port's protocol state",
	RunE: func(cmd *cobra.Command, args []string) error {
		var ports []dispatch.PortSnapshot
		if err := fetchStatus("/status/ports", &ports); err != nil {
			return err
		}
		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(ports)
		}
		printPortsTable(ports)
		return nil
	},
}

var showSportsCmd = &cobra.Command{
	Use:   "sports",
	Short: "Show every aggregator's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		var sports []dispatch.SportSnapshot
		if err := fetchStatus("/status/sports", &sports); err != nil {
			return err
		}
		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(sports)
		}
		printSportsTable(sports)
		return nil
	},
}

var showStatsCmd = &cobra.Command{
	Use:   "stats <port>",
	Short: "Show one port's LACPDU/marker counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parsePortArg(args[0])
		if err != nil {
			return err
		}

		var ports []dispatch.PortSnapshot
		if err := fetchStatus("/status/ports", &ports); err != nil {
			return err
		}
		for _, p := range ports {
			if p.Handle != target {
				continue
			}
			if app.jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(p.Stats)
			}
			printStats(p)
			return nil
		}
		return fmt.Errorf("port %s not found", target)
	},
}

// parsePortArg accepts either a raw handle.Port integer or an "EthernetN" name.
func parsePortArg(s string) (handle.Port, error) {
	if strings.HasPrefix(s, "Ethernet") {
		n, err := strconv.ParseUint(strings.TrimPrefix(s, "Ethernet"), 10, 8)
		if err != nil {
			return 0, fmt.Errorf("parsing port %q: %w", s, err)
		}
		return handle.FromLport(0, 0, uint8(n), 0, false), nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing port %q: %w", s, err)
	}
	return handle.Port(n), nil
}

// daemonBaseURL resolves the running daemon's status endpoint: the
// --daemon-addr flag if set, otherwise the configured metrics_listen_addr.
func daemonBaseURL() (string, error) {
	if app.daemonAddr != "" {
		return normalizeAddr(app.daemonAddr), nil
	}
	path := app.configPath
	if path == "" {
		path = config.DefaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", fmt.Errorf("loading config to locate daemon address: %w", err)
	}
	if cfg.MetricsListenAddr == "" {
		return "", fmt.Errorf("no --daemon-addr given and config has no metrics_listen_addr")
	}
	return normalizeAddr(cfg.MetricsListenAddr), nil
}

func normalizeAddr(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func fetchStatus(path string, out interface{}) error {
	base, err := daemonBaseURL()
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(base + path)
	if err != nil {
		return fmt.Errorf("contacting daemon at %s: %w", base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s for %s", resp.Status, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printPortsTable(ports []dispatch.PortSnapshot) {
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tSELECTED\tLINK\tRX STATE\tMUX STATE\tSPORT")
	for _, p := range ports {
		sport := "-"
		if p.HasSport {
			sport = p.SportHandle.String()
		}
		fmt.Fprintf(tw, "%s\t%v\t%s\t%s\t%s\t%s\n",
			p.Handle, p.Selected == 1, linkStr(p.LinkUp), p.RxState, p.MuxState, sport)
	}
	tw.Flush()
}

func printSportsTable(sports []dispatch.SportSnapshot) {
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SPORT\tACTOR KEY\tPARTNER\tMEMBERS\tADMIN")
	for _, s := range sports {
		partner := "-"
		if s.HasPartner {
			partner = fmt.Sprintf("%s/%d", s.PartnerSystemID, s.PartnerKey)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%v\n", s.Handle, s.ActorKey, partner, s.NumLports, s.AdminUp)
	}
	tw.Flush()
}

func printStats(p dispatch.PortSnapshot) {
	fmt.Printf("Port %s\n", p.Handle)
	fmt.Printf("  LACPDUs sent:       %d\n", p.Stats.LACPDUsSent)
	fmt.Printf("  LACPDUs received:   %d\n", p.Stats.LACPDUsReceived)
	fmt.Printf("  LACPDU rx errors:   %d\n", p.Stats.LACPDURxErrors)
	fmt.Printf("  Markers received:   %d\n", p.Stats.MarkersReceived)
	fmt.Printf("  Marker resp. sent:  %d\n", p.Stats.MarkerResponsesSent)
}

func linkStr(up bool) string {
	if up {
		return "up"
	}
	return "down"
}
