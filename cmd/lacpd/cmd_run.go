package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/newtron-network/lacpd/pkg/audit"
	"github.com/newtron-network/lacpd/pkg/configsource/redisconfig"
	"github.com/newtron-network/lacpd/pkg/forwarding/netlinkfp"
	"github.com/newtron-network/lacpd/pkg/lacp/aggregator"
	"github.com/newtron-network/lacpd/pkg/lacp/config"
	"github.com/newtron-network/lacpd/pkg/lacp/dispatch"
	"github.com/newtron-network/lacpd/pkg/lacp/engine"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
	"github.com/newtron-network/lacpd/pkg/lacplog"
	"github.com/newtron-network/lacpd/pkg/linkmonitor"
	"github.com/newtron-network/lacpd/pkg/metrics"
	"github.com/newtron-network/lacpd/pkg/pduio/afpacket"
)

// queueCapacity bounds the dispatcher's inbound event queue. Adapters log and
// drop on overflow rather than block, per spec.md's non-blocking-producer rule.
const queueCapacity = 1024

// reconcileInterval is how often the forwarding-plane adapter's
// interface-name registrations are reconciled against the aggregator table,
// so LAGs created after startup (via live CONFIG_DB updates) still get a
// kernel bond interface name to operate on.
const reconcileInterval = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the LACP daemon",
	Long: `Run starts the protocol engine and its dispatcher, then wires in the
configured adapters: Redis-backed configuration (X1), rtnetlink link
monitoring (X2), netlink bonding-driver forwarding (X3), AF_PACKET PDU I/O
(X4), and a Prometheus metrics endpoint (X5). It blocks until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	},
}

func runDaemon(ctx context.Context) error {
	path := app.configPath
	if path == "" {
		path = config.DefaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := lacplog.SetLevel(cfg.LogLevel); err != nil {
		lacplog.WithField("log_level", cfg.LogLevel).WithError(err).Warn("lacpd: invalid log_level, leaving default")
	}

	engineCfg, err := cfg.ToEngineConfig()
	if err != nil {
		return fmt.Errorf("building engine config: %w", err)
	}

	if cfg.AuditLogPath != "" {
		auditLogger, err := audit.NewFileLogger(cfg.AuditLogPath, audit.RotationConfig{
			MaxSize:    64 * 1024 * 1024,
			MaxBackups: 5,
		})
		if err != nil {
			lacplog.WithError(err).Warn("lacpd: could not initialize audit logging")
		} else {
			audit.SetDefaultLogger(auditLogger)
			defer auditLogger.Close()
		}
	}

	fp := netlinkfp.New()
	pduSink := afpacket.NewSink()
	e := engine.New(engineCfg, porttable.NewTable(), aggregator.NewTable(), fp, pduSink)

	q := dispatch.NewQueue(queueCapacity)
	d := dispatch.New(e, q)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go d.Run(ctx)

	lports := make(map[string]handle.Port, len(cfg.PDUInterfaces))
	for i, ifName := range cfg.PDUInterfaces {
		lport := handle.FromLport(0, 0, uint8(i+1), 0, false)
		lports[ifName] = lport
		fp.Register(lport, ifName)

		sock, err := afpacket.Open(ifName, lport)
		if err != nil {
			lacplog.WithField("interface", ifName).WithError(err).Error("lacpd: opening AF_PACKET socket")
			continue
		}
		pduSink.Register(lport, sock)
		defer sock.Close()

		go func(s *afpacket.Socket) {
			if err := s.Listen(ctx, q); err != nil && ctx.Err() == nil {
				lacplog.WithError(err).Error("lacpd: afpacket listen loop exited")
			}
		}(sock)
	}

	if len(lports) > 0 {
		mon, err := linkmonitor.New(lports)
		if err != nil {
			lacplog.WithError(err).Error("lacpd: starting link monitor")
		} else {
			defer mon.Close()
			go func() {
				if err := mon.Run(ctx, q); err != nil && ctx.Err() == nil {
					lacplog.WithError(err).Error("lacpd: link monitor exited")
				}
			}()
		}
	}

	var redisSource *redisconfig.Source
	if cfg.RedisAddr != "" {
		redisSource = redisconfig.New(cfg.RedisAddr)
		defer redisSource.Close()

		if err := redisSource.Sync(ctx, q); err != nil {
			lacplog.WithError(err).Error("lacpd: initial CONFIG_DB sync failed")
		}
		go func() {
			if err := redisSource.Watch(ctx, q); err != nil && ctx.Err() == nil {
				lacplog.WithError(err).Error("lacpd: CONFIG_DB watch loop exited")
			}
		}()
	}

	go reconcileAdapters(ctx, q, fp)

	if cfg.MetricsListenAddr != "" {
		mux := http.NewServeMux()
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.New(q))
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.HandleFunc("/status/ports", statusPortsHandler(q))
		mux.HandleFunc("/status/sports", statusSportsHandler(q))

		srv := &http.Server{Addr: cfg.MetricsListenAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lacplog.WithError(err).Error("lacpd: status/metrics server exited")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	lacplog.WithField("config", path).Info("lacpd: daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		lacplog.WithField("signal", sig.String()).Info("lacpd: shutting down")
	case <-ctx.Done():
	}

	q.Push(dispatch.Shutdown{})
	cancel()
	return nil
}

// reconcileAdapters keeps the forwarding-plane adapter's bond interface-name
// registration in sync with the aggregator table, so LAGs created by a live
// CONFIG_DB update (after startup) still have a kernel interface to drive.
func reconcileAdapters(ctx context.Context, q *dispatch.Queue, fp *netlinkfp.Adapter) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	registered := make(map[handle.Port]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reply := make(chan []dispatch.SportSnapshot, 1)
			if err := q.Push(dispatch.SnapshotSports{Reply: reply}); err != nil {
				continue
			}
			select {
			case sports := <-reply:
				for _, s := range sports {
					if registered[s.Handle] {
						continue
					}
					_, id := s.Handle.SportFields()
					fp.Register(s.Handle, fmt.Sprintf("PortChannel%d", id))
					registered[s.Handle] = true
				}
			case <-ctx.Done():
				return
			case <-time.After(reconcileInterval):
			}
		}
	}
}

func statusPortsHandler(q *dispatch.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []dispatch.PortSnapshot, 1)
		if err := q.Push(dispatch.SnapshotPorts{Reply: reply}); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		select {
		case ports := <-reply:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(ports)
		case <-r.Context().Done():
		}
	}
}

func statusSportsHandler(q *dispatch.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []dispatch.SportSnapshot, 1)
		if err := q.Push(dispatch.SnapshotSports{Reply: reply}); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		select {
		case sports := <-reply:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(sports)
		case <-r.Context().Done():
		}
	}
}
