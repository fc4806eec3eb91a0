// Package config reads and writes the per-repository stackgraph settings
// stored in .git/.stackgraph_config.
package config
