// Package prometheus renders storeauth metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts a [storeauth.Engine] and exposes an [net/http.Handler]
// that renders every counter and histogram. Counter names are prefixed
// storeauth_*_total; the single histogram is storeauth_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
