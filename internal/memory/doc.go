// Package memory is the Client Facade: the composition root wiring
// storage, the vector index, extraction, contradiction detection, goal
// clustering and retrieval into the ingest/query/session API a host
// application calls.
package memory
