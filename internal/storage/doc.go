// Package storage is the Storage Engine: the single embedded relational
// database for nodes, edges, embeddings, facts, entities, goal clusters
// and sessions. It owns durability, atomic multi-statement writes, and
// schema migrations; every other package is a read-through consumer of
// its state.
package storage
