// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): text extraction, inference backends,
// index and statistics persistence, and configuration.
package driven
