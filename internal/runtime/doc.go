// Package runtime provides the execution context for stackgraph commands.
//
// It bundles the repository, its configuration and the logger, and knows
// how to build the commit graph and workspace the commands operate on.
package runtime
