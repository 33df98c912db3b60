// Command blockserver runs one block-server process (C1 in SPEC_FULL.md
// §4.1): a fixed array of checksummed blocks served over net/rpc, with
// optional injected delay/corruption for exercising the RAID-5 client's
// failure paths, and a Prometheus metrics endpoint.
package main

import (
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wothmag07/distributed-raid5-filesystem/internal/blockrpc"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/config"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/logger"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/metrics"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/server"
)

var (
	port         int
	metricsPort  int
	totalBlocks  int
	blockSize    int
	delayAt      int
	corruptBlock int
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "blockserver",
	Short: "Run a single RAID-5 block-server node",
	RunE:  runServer,
}

func init() {
	// Flag names match spec.md §6's block-server CLI contract exactly:
	// -nb, -bs, -port, -delayat, -cblk (ported from original_source/
	// blockserver.py's argparse options, which accept these as
	// single-dash long options). pflag only parses multi-character names
	// behind "--", so main() rewrites a leading "-nb"-style argument to
	// "--nb" before cobra ever sees it — see normalizeArgs.
	rootCmd.Flags().IntVar(&port, "port", config.DefaultStartPort, "TCP port to listen on for RPC")
	rootCmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "TCP port to serve Prometheus metrics on (0 disables)")
	rootCmd.Flags().IntVar(&totalBlocks, "nb", config.DefaultTotalNumBlocks, "number of logical blocks this server holds")
	rootCmd.Flags().IntVar(&blockSize, "bs", config.DefaultBlockSize, "size in bytes of each block")
	rootCmd.Flags().IntVar(&delayAt, "delayat", 0, "sleep 10s on every Nth request (0 disables)")
	rootCmd.Flags().IntVar(&corruptBlock, "cblk", -1, "always report this block index as corrupted (-1 disables)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", config.LogLevelInfo, "log level: debug, info, warn, error")
}

// singleDashLongFlags lists the spec-mandated flag names that must also
// be invokable with a single leading dash, matching argparse's dual
// "-nb"/"--nb" spelling. pflag's parser treats a lone "-" prefix as
// shorthand-cluster syntax (one-character flags only), so "-nb" would
// otherwise be parsed as the two shorthands "n" and "b" and rejected.
var singleDashLongFlags = map[string]bool{
	"-nb": true, "-bs": true, "-port": true, "-delayat": true, "-cblk": true,
}

// normalizeArgs rewrites a recognized single-dash long flag ("-nb") into
// its double-dash form ("--nb") so pflag parses it as the long flag it
// names, instead of rejecting it as an unknown shorthand cluster.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		name, _, found := strings.Cut(a, "=")
		if !found {
			name = a
		}
		if singleDashLongFlags[name] {
			out[i] = "-" + a
		} else {
			out[i] = a
		}
	}
	return out
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := logger.InitLogger(logLevel); err != nil {
		return fmt.Errorf("blockserver: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewServerMetrics(registry)

	store := server.New(totalBlocks, blockSize, delayAt, corruptBlock, m)
	svc := &server.BlockService{Store: store}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(blockrpc.ServiceName, svc); err != nil {
		return fmt.Errorf("blockserver: registering RPC service: %w", err)
	}
	rpcServer.HandleHTTP(rpc.DefaultRPCPath, rpc.DefaultDebugPath)

	if metricsPort > 0 {
		go serveMetrics(metricsPort, registry)
	}

	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("blockserver: listening on %s: %w", addr, err)
	}
	logrus.Infof("blockserver: listening on %s (%d blocks of %d bytes, delay-at=%d, corrupt-block=%d)",
		addr, totalBlocks, blockSize, delayAt, corruptBlock)

	return http.Serve(listener, nil)
}

func serveMetrics(port int, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", port)
	logrus.Infof("blockserver: metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logrus.Errorf("blockserver: metrics server stopped: %v", err)
	}
}

func main() {
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
