// Package main provides the entry point for raftfleetd.
//
// raftfleetd is the per-node fleet process (§6.3): it runs the cluster
// group's own Raft replica, the Manager that converges this node's local
// replicas on the cluster's desired placement, the control-plane RPC
// server other nodes reach it through, and the admin HTTP API
// raftfleetctl and embedding services talk to.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"hash/crc32"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/raftfleet/raftfleet/internal/adminapi"
	"github.com/raftfleet/raftfleet/internal/api"
	"github.com/raftfleet/raftfleet/internal/cluster"
	"github.com/raftfleet/raftfleet/internal/config"
	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/engine"
	"github.com/raftfleet/raftfleet/internal/infra/buildinfo"
	"github.com/raftfleet/raftfleet/internal/infra/confloader"
	"github.com/raftfleet/raftfleet/internal/infra/shutdown"
	"github.com/raftfleet/raftfleet/internal/infra/tlsroots"
	"github.com/raftfleet/raftfleet/internal/leader"
	"github.com/raftfleet/raftfleet/internal/manager"
	"github.com/raftfleet/raftfleet/internal/persist"
	"github.com/raftfleet/raftfleet/internal/purge"
	"github.com/raftfleet/raftfleet/internal/refresher"
	"github.com/raftfleet/raftfleet/internal/rpcfleet"
	"github.com/raftfleet/raftfleet/internal/telemetry/logger"
	"github.com/raftfleet/raftfleet/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, slogLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting raftfleetd",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"node_id", cfg.Node.ID,
		"zone", cfg.Node.Zone,
		"config", *configFile)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	shutdownHandler.OnShutdown(func(context.Context) error {
		cancel()
		return nil
	})

	nodeAddr, rpcAddr := addressResolvers(cfg)

	var marker *persist.Marker
	if markerDir := markerDir(cfg); markerDir != "" {
		marker, err = persist.Open(markerDir, slogLogger)
		if err != nil {
			return fmt.Errorf("open persistence marker: %w", err)
		}
		shutdownHandler.OnShutdown(func(context.Context) error {
			log.Info("closing persistence marker")
			return marker.Close()
		})
	}

	clusterFSM := cluster.NewFSM(slogLogger)
	clusterNode, err := engine.New(engine.Config{
		GroupName: string(cluster.GroupName),
		LocalID:   string(cfg.Node.ID),
		BindAddr:  cfg.Node.BindAddr,
		DataDir:   clusterDataDir(cfg),
		Bootstrap: cfg.Node.Bootstrap,
		Logger:    slogLogger,
	}, clusterFSM)
	if err != nil {
		return fmt.Errorf("start cluster group: %w", err)
	}
	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("closing cluster group replica")
		return clusterNode.Close()
	})

	rpcTLS, stopRPCTLS, err := newRPCTLSConfig(cfg, slogLogger)
	if err != nil {
		return fmt.Errorf("configure rpc tls: %w", err)
	}
	if stopRPCTLS != nil {
		shutdownHandler.OnShutdown(func(context.Context) error {
			log.Info("stopping rpc tls watcher")
			stopRPCTLS()
			return nil
		})
	}

	rpcClient := rpcfleet.NewClient(rpcHTTPClient(rpcTLS), nodeAddr)

	// A typed-nil *persist.Marker must not be handed to Manager as a
	// non-nil PersistenceChecker, or its nil-receiver Exists call panics.
	var persistChecker manager.PersistenceChecker
	if marker != nil {
		persistChecker = marker
	}

	mgr := manager.New(manager.Config{
		NodeID:               domain.NodeID(cfg.Node.ID),
		Zone:                 domain.ZoneID(cfg.Node.Zone),
		BalancingInterval:    cfg.Balancing.Interval,
		BalancingConcurrency: cfg.Balancing.Concurrency,
		BindAddr:             groupBindAddr(cfg),
		DataDir:              groupDataDir(cfg),
		Logger:               slogLogger,
	}, clusterNode, clusterFSM, persistChecker, rpcClient, rpcClient)
	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("stopping local replicas")
		return mgr.Close()
	})

	cache := leader.NewCache()
	resolver := leader.NewResolver(cache, clusterFSM, rpcClient, slogLogger)

	fleet := api.New(api.Config{
		DefaultDispatch: leader.Config{
			Timeout:       cfg.Leader.DispatchTimeout,
			Retry:         cfg.Leader.DispatchRetry,
			RetryInterval: cfg.Leader.DispatchRetryInterval,
		},
	}, mgr, clusterFSM, resolver)

	rpcServer := rpcfleet.New(rpcfleet.Config{RPCAddr: rpcAddr, Logger: slogLogger}, mgr)
	rpcHTTPServer := &http.Server{Addr: cfg.RPC.Addr, Handler: rpcServer, TLSConfig: rpcTLS}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down rpc server")
		return rpcHTTPServer.Shutdown(ctx)
	})
	go func() {
		log.Info("rpc server listening", "addr", cfg.RPC.Addr, "tls", rpcTLS != nil)
		var err error
		if rpcTLS != nil {
			// Certificate and key come from rpcTLS.GetCertificate, so both
			// arguments here are empty.
			err = rpcHTTPServer.ListenAndServeTLS("", "")
		} else {
			err = rpcHTTPServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("rpc server error", "error", err)
		}
	}()

	adminServer := adminapi.New(adminapi.Config{Logger: slogLogger}, fleet)
	adminHTTPServer := &http.Server{Addr: cfg.Admin.Addr, Handler: adminServer}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down admin server")
		return adminHTTPServer.Shutdown(ctx)
	})
	go func() {
		log.Info("admin server listening", "addr", cfg.Admin.Addr)
		if err := adminHTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server error", "error", err)
		}
	}()

	metricsHTTPServer := &http.Server{Addr: cfg.Metrics.Addr, Handler: metric.Handler()}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down metrics server")
		return metricsHTTPServer.Shutdown(ctx)
	})
	go func() {
		log.Info("metrics server listening", "addr", cfg.Metrics.Addr)
		if err := metricsHTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	prober, err := newLivenessProber(cfg)
	if err != nil {
		return fmt.Errorf("start liveness prober: %w", err)
	}
	if prober != nil {
		shutdownHandler.OnShutdown(func(context.Context) error {
			log.Info("shutting down liveness prober")
			return prober.Shutdown()
		})
	}

	purgeController := purge.New(purge.Config{
		ReconnectInterval:       cfg.Purge.ReconnectInterval,
		FailureTimeWindow:       cfg.Purge.FailureTimeWindow,
		ThresholdFailingMembers: cfg.Purge.ThresholdFailingMembers,
		NodeAddr:                gossipAddrResolver(cfg),
		Logger:                  slogLogger,
	}, clusterNode, clusterFSM, prober, nil)

	cacheRefresher := refresher.New(refresher.Config{
		Interval: cfg.Leader.CacheRefreshInterval,
		Logger:   slogLogger,
	}, cache, clusterFSM, rpcClient)

	if watcher, werr := newConfigWatcher(*configFile, log); werr == nil && watcher != nil {
		watcher.StartAsync()
		shutdownHandler.OnShutdown(func(context.Context) error {
			return watcher.Stop()
		})
	}

	go mgr.Run(ctx)
	go purgeController.Run(ctx)
	go cacheRefresher.Run(ctx)

	log.Info("raftfleetd started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("raftfleetd stopped gracefully")
	return nil
}

// loadConfig loads FleetConfig from the optional file plus environment.
func loadConfig(configFile string) (*config.FleetConfig, error) {
	return config.NewLoader(config.WithConfigFile(configFile)).Load()
}

// initLogger builds both the redacting Logger interface (for this
// package's own log lines) and a raw *slog.Logger (for components that
// take one directly: engine, manager, purge, rpcfleet, adminapi, persist).
func initLogger(cfg *config.FleetConfig) (logger.Logger, *slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.SetDefault(log)

	opts := &slog.HandlerOptions{Level: levelFromString(cfg.Log.Level)}
	var handler slog.Handler
	if cfg.Log.Format == "text" || cfg.Log.Format == "console" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slogLogger := slog.New(handler).With("node_id", cfg.Node.ID)
	slog.SetDefault(slogLogger)

	return log, slogLogger, nil
}

func levelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// addressResolvers builds the node-address and RPC-address lookups every
// wire-facing component (rpcfleet.Client, rpcfleet.Server) needs to reach
// a peer's control-plane endpoint, layering cfg.Peers over this node's own
// RPC listen address.
func addressResolvers(cfg *config.FleetConfig) (func(domain.NodeID) string, func(domain.NodeID, domain.GroupName) string) {
	scheme := "http://"
	if cfg.RPC.TLS.CertFile != "" {
		scheme = "https://"
	}
	nodeAddr := func(node domain.NodeID) string {
		if node == domain.NodeID(cfg.Node.ID) {
			return scheme + cfg.RPC.Addr
		}
		if addr, ok := cfg.Peers[string(node)]; ok {
			return addr
		}
		return ""
	}
	rpcAddr := func(node domain.NodeID, _ domain.GroupName) string {
		return nodeAddr(node)
	}
	return nodeAddr, rpcAddr
}

// clusterDataDir returns the cluster group's own durable state directory,
// or "" (transient, in-memory) when node.data_dir is unset.
func clusterDataDir(cfg *config.FleetConfig) string {
	if cfg.Node.DataDir == "" {
		return ""
	}
	return filepath.Join(cfg.Node.DataDir, "cluster")
}

// markerDir returns the persistence marker's directory, defaulting under
// node.data_dir when storage.marker_dir is unset and a data dir exists.
func markerDir(cfg *config.FleetConfig) string {
	if cfg.Storage.MarkerDir != "" {
		return cfg.Storage.MarkerDir
	}
	if cfg.Node.DataDir == "" {
		return ""
	}
	return filepath.Join(cfg.Node.DataDir, "marker")
}

// persistenceDirParent returns storage.persistence_dir_parent, defaulting
// to <data_dir>/groups per §6.2 when unset and a data dir exists.
func persistenceDirParent(cfg *config.FleetConfig) string {
	if cfg.Storage.PersistenceDirParent != "" {
		return cfg.Storage.PersistenceDirParent
	}
	if cfg.Node.DataDir == "" {
		return ""
	}
	return filepath.Join(cfg.Node.DataDir, "groups")
}

// groupDataDir returns a Manager.Config.DataDir closure: "" (transient)
// for every group when persistence_dir_parent resolves empty, otherwise
// one subdirectory per group underneath it.
func groupDataDir(cfg *config.FleetConfig) func(domain.GroupName) string {
	parent := persistenceDirParent(cfg)
	return func(name domain.GroupName) string {
		if parent == "" {
			return ""
		}
		return filepath.Join(parent, string(name))
	}
}

// groupBindAddr returns a Manager.Config.BindAddr closure: each group gets
// a distinct local port, deterministically derived from its name so a
// restarted process picks the same port its peers already know about.
func groupBindAddr(cfg *config.FleetConfig) func(domain.GroupName) string {
	host, portStr, _ := net.SplitHostPort(cfg.Node.BindAddr)
	basePort, _ := strconv.Atoi(portStr)
	return func(name domain.GroupName) string {
		offset := int(crc32.ChecksumIEEE([]byte(name)) % 4000)
		return net.JoinHostPort(host, strconv.Itoa(basePort+1000+offset))
	}
}

// gossipAddrResolver resolves a node to the memberlist gossip address the
// PurgeController reconnects to, derived from that node's RPC address
// since no separate gossip address is configured.
func gossipAddrResolver(cfg *config.FleetConfig) func(domain.NodeID) string {
	return func(node domain.NodeID) string {
		addr, ok := cfg.Peers[string(node)]
		if !ok {
			return ""
		}
		host, _, err := net.SplitHostPort(trimScheme(addr))
		if err != nil {
			return ""
		}
		return net.JoinHostPort(host, strconv.Itoa(gossipPort(cfg)))
	}
}

func trimScheme(addr string) string {
	for _, prefix := range []string{"http://", "https://"} {
		if len(addr) > len(prefix) && addr[:len(prefix)] == prefix {
			return addr[len(prefix):]
		}
	}
	return addr
}

func gossipPort(cfg *config.FleetConfig) int {
	_, portStr, err := net.SplitHostPort(cfg.Node.BindAddr)
	if err != nil {
		return 7399
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 7399
	}
	return port - 1
}

// newRPCTLSConfig builds the control-plane RPC listener's TLS config from
// rpc.tls, using tlsroots for certificate loading/hot-reload and custom CA
// pooling. A nil config (rpc.tls.cert_file unset) means plain HTTP, the
// default for every deployment that doesn't configure this section. The
// returned stop func (non-nil only when TLS is enabled) must be called on
// shutdown to close the certificate watcher.
func newRPCTLSConfig(cfg *config.FleetConfig, logger *slog.Logger) (*tls.Config, func(), error) {
	tlsCfg := cfg.RPC.TLS
	if tlsCfg.CertFile == "" {
		return nil, nil, nil
	}

	watcher, err := tlsroots.NewWatcher(tlsCfg.CertFile, tlsCfg.KeyFile, tlsroots.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("load rpc tls cert/key: %w", err)
	}

	pool, err := tlsroots.NewPool()
	if err != nil {
		return nil, nil, fmt.Errorf("load rpc tls ca pool: %w", err)
	}
	if tlsCfg.CAFile != "" {
		if err := pool.AddCertFile(tlsCfg.CAFile); err != nil {
			return nil, nil, fmt.Errorf("load rpc tls ca file: %w", err)
		}
	}

	conf := &tls.Config{
		GetCertificate: watcher.GetCertificate,
		RootCAs:        pool.Pool(),
		MinVersion:     tls.VersionTLS12,
	}
	if tlsCfg.ClientAuth {
		conf.ClientCAs = pool.Pool()
		conf.ClientAuth = tls.RequireAndVerifyClientCert
		conf.GetClientCertificate = watcher.GetClientCertificate
	}

	watcher.StartAsync()
	return conf, watcher.Stop, nil
}

// rpcHTTPClient builds the *http.Client rpcfleet.Client dials peers with.
// When rpcTLS is nil (plain HTTP deployments) it returns nil, which
// rpcfleet.NewClient treats as http.DefaultClient.
func rpcHTTPClient(rpcTLS *tls.Config) *http.Client {
	if rpcTLS == nil {
		return nil
	}
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:              rpcTLS.RootCAs,
				GetClientCertificate: rpcTLS.GetClientCertificate,
				MinVersion:           tls.VersionTLS12,
			},
		},
	}
}

// newLivenessProber starts this node's memberlist agent for the
// PurgeController's liveness probing (§4.7), bound on a dedicated gossip
// port derived from node.bind_addr.
func newLivenessProber(cfg *config.FleetConfig) (*purge.MemberlistProber, error) {
	host, _, err := net.SplitHostPort(cfg.Node.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("parse node.bind_addr: %w", err)
	}
	return purge.NewMemberlistProber(cfg.Node.ID, host, gossipPort(cfg))
}

// newConfigWatcher hot-reloads the log level on file change. Every other
// section, the balancing interval included, is read once at startup into
// already-constructed components and is not re-applied on reload.
func newConfigWatcher(configFile string, log logger.Logger) (*confloader.Watcher, error) {
	if configFile == "" {
		return nil, nil
	}
	watcher, err := confloader.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		return nil, err
	}
	watcher.OnChange(func(path string) {
		cfg, err := loadConfig(path)
		if err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("config reloaded", "log_level", cfg.Log.Level)
	})
	return watcher, nil
}
