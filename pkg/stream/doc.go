// Package stream implements the output-stream engine: a bounded,
// append-only, ready-latched history of one stdio channel.
// A stream holds either decoded lines or raw bytes, never both; callers
// pick the element type by instantiating OutputStream[string] or
// OutputStream[byte].
package stream
