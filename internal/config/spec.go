// Package config defines and loads raftfleet's process-wide configuration
// (§6.2): the six tunables plus the ambient additions (node identity,
// logging, RPC listen addresses) a deployable process needs beyond the
// six tunables §6.2 names.
package config

import "time"

// FleetConfig is the root configuration for a raftfleetd process.
type FleetConfig struct {
	Node      NodeSection      `koanf:"node"`
	Balancing BalancingSection `koanf:"balancing"`
	Leader    LeaderSection    `koanf:"leader"`
	Purge     PurgeSection     `koanf:"purge"`
	Storage   StorageSection   `koanf:"storage"`
	RPC       RPCSection       `koanf:"rpc"`
	Admin     AdminSection     `koanf:"admin"`
	Log       LogSection       `koanf:"log"`
	Metrics   MetricsSection   `koanf:"metrics"`

	// Peers maps every other fleet node's NodeId to its control-plane RPC
	// base address (e.g. "http://10.0.1.4:7400"), so this process can
	// resolve who_is_leader/dispatch/join/bootstrap targets. Entries are
	// static: fleet membership changes via activate()/deactivate(), but
	// reaching a node's RPC port is a deployment-time concern outside the
	// replicated state.
	Peers map[string]string `koanf:"peers"`
}

// NodeSection identifies this process within the fleet and configures the
// Raft transport its local replicas (cluster group included) listen on.
type NodeSection struct {
	ID   string `koanf:"id"`
	Zone string `koanf:"zone"`

	// BindAddr is the local TCP address the cluster-group Raft transport
	// listens on. Per-group replica transports derive their own address
	// from this via Manager.Config.BindAddr.
	BindAddr string `koanf:"bind_addr"`

	// DataDir roots this node's durable state: the cluster group persists
	// under <data_dir>/cluster, and persistence_dir_parent (Storage
	// section) defaults to <data_dir>/groups when unset.
	DataDir string `koanf:"data_dir"`

	// Bootstrap, if true, forms a brand-new single-node cluster group out
	// of this node. Exactly one node in a fresh fleet sets this; every
	// other node joins via AddVoter once it has a leader to ask.
	Bootstrap bool `koanf:"bootstrap"`
}

// MetricsSection configures the Prometheus /metrics listener.
type MetricsSection struct {
	Addr string `koanf:"addr"`
}

// BalancingSection configures the Manager's reconciliation loop.
type BalancingSection struct {
	Interval    time.Duration `koanf:"interval"`     // balancing_interval
	Concurrency int           `koanf:"concurrency"`
}

// LeaderSection configures LeaderCache/LeaderResolver/CacheRefresher.
type LeaderSection struct {
	CacheRefreshInterval time.Duration `koanf:"cache_refresh_interval"` // leader_pid_cache_refresh_interval
	DispatchTimeout      time.Duration `koanf:"dispatch_timeout"`
	DispatchRetry        int           `koanf:"dispatch_retry"`
	DispatchRetryInterval time.Duration `koanf:"dispatch_retry_interval"`
}

// PurgeSection configures PurgeController.
type PurgeSection struct {
	FailureTimeWindow       time.Duration `koanf:"failure_time_window"`       // node_purge_failure_time_window
	ReconnectInterval       time.Duration `koanf:"reconnect_interval"`        // node_purge_reconnect_interval
	ThresholdFailingMembers int           `koanf:"threshold_failing_members"` // node_purge_threshold_failing_members
}

// StorageSection configures per-group persistence.
type StorageSection struct {
	PersistenceDirParent string `koanf:"persistence_dir_parent"` // persistence_dir_parent
	MarkerDir            string `koanf:"marker_dir"`
}

// RPCSection configures the control-plane HTTP listener (internal/rpcfleet).
type RPCSection struct {
	Addr string     `koanf:"addr"`
	TLS  TLSSection `koanf:"tls"`
}

// TLSSection configures transport security for a listener. An empty
// CertFile leaves the listener as plain HTTP, matching every prior
// deployment that never set these keys.
type TLSSection struct {
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`

	// CAFile adds a custom CA to the pool used both to verify client
	// certificates (when ClientAuth is set) and to verify peer servers
	// when this node dials them.
	CAFile string `koanf:"ca_file"`

	// ClientAuth requires and verifies a client certificate from every
	// peer that dials this listener (mutual TLS between fleet nodes).
	ClientAuth bool `koanf:"client_auth"`
}

// AdminSection configures the admin HTTP listener (internal/adminapi) that
// raftfleetctl and embedding services talk to for the public Fleet surface.
type AdminSection struct {
	Addr string `koanf:"addr"`
}

// LogSection configures structured logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
