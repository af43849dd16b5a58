// Package config provides the configuration of linkcrawl: API client
// settings, graph store location, and pipeline tuning. Values come from
// defaults, the .linkcrawl YAML file, the environment (including a .env
// file), and command line flags, in increasing order of precedence.
package config
