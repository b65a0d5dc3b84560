// Package daemonrun assembles and runs the service stack. It is shared by
// the standalone umserviced binary and the um serve subcommand so both run
// exactly the same daemon.
package daemonrun
