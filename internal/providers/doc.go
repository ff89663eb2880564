// Package providers defines the external collaborator interfaces the
// engine depends on but never embeds: an embedding provider (turns text
// into a vector) and an LLM provider (turns retrieved memories into
// synthesized prose). Both are pluggable so a host application can swap
// in its own implementation.
package providers
