// Package metrics defines the sink interfaces used to observe dispatch
// outcomes, driver offers, completed trips, key-store exchanges and vehicle
// status changes. A sink
// only needs MetricsSink; the other recorders are detected with type
// assertions so sinks can pick what they store.
package metrics
