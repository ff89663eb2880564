// Package vectorindex is the Vector Index: an in-memory approximate
// nearest-neighbor index (HNSW) over unit-normalized embeddings, with an
// exhaustive linear-scan fallback. It is a derived structure only -- it
// is never persisted; Storage owns the durable vectors and the Client
// Facade rebuilds this index from Storage on startup.
package vectorindex
