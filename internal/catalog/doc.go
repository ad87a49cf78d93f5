// Package catalog resolves requested asset names into Track or Movie metadata
// by querying the remote catalog API.
//
// A Registry holds resolvers in priority order, each owning a disjoint set of
// file extensions. Adding support for a new asset family means adding a
// Resolver, not editing the dispatch.
package catalog
