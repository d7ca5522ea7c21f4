/*
Package observability provides ready-made lifecycle hooks for monitoring a
Parley orchestrator.

It exposes Prometheus counters for executed, blocked, and stage-switching
transitions, and structured logging of every lifecycle event.
*/
package observability
