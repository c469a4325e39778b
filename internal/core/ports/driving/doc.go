// Package driving provides interfaces for primary/inbound ports: the
// operations the CLI (or any other front end) invokes on the core.
package driving
