package config

import "fmt"

// Verify validates a loaded FleetConfig. Node identity has no default and
// must come from the file, env, or CLI flags; everything else in §6.2 has
// a usable default even when left unset.
func Verify(cfg *FleetConfig) error {
	if cfg.Node.ID == "" {
		return fmt.Errorf("config: node.id is required")
	}
	if cfg.Node.BindAddr == "" {
		return fmt.Errorf("config: node.bind_addr is required")
	}
	if cfg.Balancing.Interval <= 0 {
		return fmt.Errorf("config: balancing.interval must be positive")
	}
	if cfg.Balancing.Concurrency < 1 {
		return fmt.Errorf("config: balancing.concurrency must be at least 1")
	}
	if cfg.Leader.DispatchRetry < 0 {
		return fmt.Errorf("config: leader.dispatch_retry must not be negative")
	}
	if cfg.Purge.ThresholdFailingMembers < 1 {
		return fmt.Errorf("config: purge.threshold_failing_members must be at least 1")
	}
	if cfg.RPC.Addr == "" {
		return fmt.Errorf("config: rpc.addr is required")
	}
	if (cfg.RPC.TLS.CertFile == "") != (cfg.RPC.TLS.KeyFile == "") {
		return fmt.Errorf("config: rpc.tls.cert_file and rpc.tls.key_file must be set together")
	}
	if cfg.RPC.TLS.ClientAuth && cfg.RPC.TLS.CertFile == "" {
		return fmt.Errorf("config: rpc.tls.client_auth requires rpc.tls.cert_file")
	}
	return nil
}
