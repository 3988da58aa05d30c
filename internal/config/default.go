package config

import "time"

// Default configuration values, matching §6.2's documented defaults.
const (
	DefaultBalancingInterval    = 60 * time.Second
	DefaultBalancingConcurrency = 4

	DefaultCacheRefreshInterval  = 300 * time.Second
	DefaultDispatchTimeout       = 500 * time.Millisecond
	DefaultDispatchRetry         = 3
	DefaultDispatchRetryInterval = 1000 * time.Millisecond

	DefaultPurgeFailureTimeWindow       = 600 * time.Second
	DefaultPurgeReconnectInterval       = 60 * time.Second
	DefaultPurgeThresholdFailingMembers = 2

	DefaultRPCAddr   = "127.0.0.1:7400"
	DefaultAdminAddr = "127.0.0.1:7402"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultNodeBindAddr = "127.0.0.1:7300"
	DefaultMetricsAddr  = "127.0.0.1:7401"
)

// Default returns the default FleetConfig. persistence_dir_parent (§6.2)
// has no default: an empty string means transient, in-memory replicas.
func Default() *FleetConfig {
	return &FleetConfig{
		Node: NodeSection{
			BindAddr: DefaultNodeBindAddr,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Balancing: BalancingSection{
			Interval:    DefaultBalancingInterval,
			Concurrency: DefaultBalancingConcurrency,
		},
		Leader: LeaderSection{
			CacheRefreshInterval:  DefaultCacheRefreshInterval,
			DispatchTimeout:       DefaultDispatchTimeout,
			DispatchRetry:         DefaultDispatchRetry,
			DispatchRetryInterval: DefaultDispatchRetryInterval,
		},
		Purge: PurgeSection{
			FailureTimeWindow:       DefaultPurgeFailureTimeWindow,
			ReconnectInterval:       DefaultPurgeReconnectInterval,
			ThresholdFailingMembers: DefaultPurgeThresholdFailingMembers,
		},
		RPC: RPCSection{
			Addr: DefaultRPCAddr,
		},
		Admin: AdminSection{
			Addr: DefaultAdminAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
