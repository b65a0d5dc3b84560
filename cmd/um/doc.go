// Package main hosts the um CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC
// calls against the conversion service, one-shot batch runs, and
// configuration scaffolding. Configuration resolution and endpoint
// discovery are centralized in commandContext so subcommands stay thin;
// conversion logic itself lives in the internal packages.
package main
