package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/glint/pkg/cluster"
	"github.com/cuemby/glint/pkg/collection"
	"github.com/cuemby/glint/pkg/events"
	"github.com/cuemby/glint/pkg/indexer"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/log"
	"github.com/cuemby/glint/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a glint node",
	Long: `Start a glint node: open the local store, rebuild every collection's
in-memory indexes, join (or bootstrap) the raft cluster, and serve
metrics/health over HTTP until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("node-id", "node-1", "Unique id for this raft node")
	serveCmd.Flags().String("peering-addr", "127.0.0.1:9100", "Address raft uses to talk to other nodes")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address to serve /metrics, /health, /ready, /live on")
	serveCmd.Flags().Bool("bootstrap", false, "Bootstrap a new single-node cluster instead of joining one")
	serveCmd.Flags().String("nodes", "", "Cluster membership string (host:peering_port:api_port,...) per the join protocol")
	serveCmd.Flags().Int("queues", 4, "Number of indexer drain queues")
	serveCmd.Flags().Duration("start-period", 5*time.Second, "Grace period before this node reports write-ready after winning an election")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("serve")

	store, err := kv.NewBoltStore(dataDir(cmd))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	manager := collection.NewManager(store)
	if err := manager.LoadAll(); err != nil {
		return fmt.Errorf("load collections: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()

	numQueues, _ := cmd.Flags().GetInt("queues")
	ix := indexer.New(store, manager, broker, numQueues)
	ix.Start()

	nodeID, _ := cmd.Flags().GetString("node-id")
	peeringAddr, _ := cmd.Flags().GetString("peering-addr")
	bootstrap, _ := cmd.Flags().GetBool("bootstrap")
	nodesCsv, _ := cmd.Flags().GetString("nodes")
	startPeriod, _ := cmd.Flags().GetDuration("start-period")

	var peers []cluster.Peer
	if nodesCsv != "" {
		peers, err = cluster.ParseMembership(nodesCsv)
		if err != nil {
			return fmt.Errorf("parse cluster membership: %w", err)
		}
	}

	node, err := cluster.InitNode(cluster.Config{
		NodeID:      nodeID,
		PeeringAddr: peeringAddr,
		DataDir:     dataDir(cmd),
		Bootstrap:   bootstrap,
		Peers:       peers,
		StartPeriod: startPeriod,
	}, store, manager, ix, broker)
	if err != nil {
		return fmt.Errorf("start cluster node: %w", err)
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("indexer", true, "started")

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	errCh := make(chan error, 1)
	go func() {
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	logger.Info().Str("addr", metricsAddr).Msg("metrics/health endpoints listening")
	logger.Info().Str("node_id", nodeID).Str("peering_addr", peeringAddr).Bool("bootstrap", bootstrap).Msg("glint node started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("serve error")
	}

	ix.Stop()
	broker.Stop()
	if err := node.Shutdown(); err != nil {
		return fmt.Errorf("shutdown cluster node: %w", err)
	}
	return nil
}
