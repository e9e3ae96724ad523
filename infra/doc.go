// Package infra contains technical adapters such as the MQTT offer client,
// the key-store bridge, the PostgreSQL trip store and metrics exporters.
// These packages should depend only on the interfaces defined in the core
// packages.
package infra
