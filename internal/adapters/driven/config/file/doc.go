// Package file provides the TOML-based configuration store.
// Keys use dot notation (e.g. "embedding.provider"); nested TOML tables
// are flattened on load.
package file
