// Package prometheus renders engine metrics in Prometheus text exposition
// format.
//
// [NewExporter] reads [reeutil.Engine.MetricsSnapshot] on every scrape.
// Counter names are prefixed reeutil_*_total; the single histogram is
// reeutil_authorize_latency_seconds. Nothing is registered globally; callers
// mount [Exporter.Handler].
package prometheus
