// Package shutdown provides graceful shutdown for raftfleetd.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - A shutdown deadline passed to every hook through its context (a hook
//     that ignores it is not interrupted)
//   - Cleanup callback registration, run in reverse registration order
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return server.Shutdown(ctx) })
//	h.Wait() // blocks until SIGINT/SIGTERM, then runs hooks
package shutdown
