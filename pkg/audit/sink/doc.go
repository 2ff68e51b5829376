// Package sink provides audit.Sink implementations.
package sink
