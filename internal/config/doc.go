// Package config reads reburn config files. TOML and YAML are supported;
// precedence against environment and flags is resolved by the CLI.
package config
