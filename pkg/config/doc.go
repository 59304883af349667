// Package config loads dockhand's YAML configuration: docker binary
// override, stream retention defaults, stop grace period, logging, and
// remote peer credentials. Everything works with the zero config; a
// file only overrides what it names.
package config
