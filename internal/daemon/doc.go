// Package daemon ties the session manager, history store and IPC protocol
// together into the long-running service process. A file lock in the log
// directory enforces single-instance execution.
package daemon
