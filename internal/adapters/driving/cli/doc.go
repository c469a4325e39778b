// Package cli provides the cobra command tree. Commands are thin: they
// parse arguments, call the driving ports and format results. All
// behaviour lives in the core services.
package cli
