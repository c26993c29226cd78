// Package health holds the liveness and readiness probes served on
// /-/healthy, /-/ready and the ops listener's /healthz, /readyz.
//
// Probes compose with [All] and [Timeout]. The server's readiness is
// the [ShutdownGate] AND a check that the content source is still there, so a
// preview whose folder was deleted reports not ready.
package health
