// Package api is the optional thin HTTP surface in front of a memory
// Facade: store, query and stats, each with auth, CORS and rate-limit
// middleware.
package api
