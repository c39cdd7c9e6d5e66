/*
Package observability turns the engine's lifecycle hooks into Prometheus
metrics and structured log lines.

Hooks from several consumers are merged with Aggregate, so the engine and the
session manager each take a single domain.LifecycleHooks value.
*/
package observability
