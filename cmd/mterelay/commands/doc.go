// Package commands defines the mterelay CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - pair     Establish additional pairs with an endpoint's relay
//   - get      Send a protected GET through a relay
//   - post     Send a protected POST through a relay
//   - state    Print client ids, pair counts and idle handle counts
//
// # Implementation
//
// The root command loads the TOML configuration named by --config, builds
// the dependency graph (engine, pool, state repository, one session per
// endpoint) and runs session setup before any subcommand runs. Setup
// restores pairs kept in the state directory or pairs afresh.
package commands
