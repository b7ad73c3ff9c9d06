// Package cli provides the stubd command line.
//
// Commands:
//   - serve: run the stub server (also the default without a subcommand)
//   - validate: check mapping files without starting the server
//   - version: show build information
//
// Settings come from flags, STUBD_* environment variables and an optional
// stubd.yaml, in that order of precedence.
package cli
