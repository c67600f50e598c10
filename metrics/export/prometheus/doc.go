// Package prometheus exposes gate metrics as a client_golang [prometheus.Collector].
//
// Counter names are prefixed formlogin_ and suffixed _total; the single histogram is
// formlogin_resolve_latency_seconds. Values are read from the gate snapshot on every
// scrape, nothing is cached.
//
// # What this package must NOT do
//
//   - Register with the global default registry; callers pick the registry.
//   - Mutate gate state.
package prometheus
